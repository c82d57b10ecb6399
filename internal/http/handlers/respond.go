package handlers

import "github.com/gin-gonic/gin"

// Every response carries the {success, message} envelope the clients
// already parse; success payloads add their fields alongside it.

func RespondSuccess(ctx *gin.Context, status int, body gin.H) {
	payload := gin.H{"success": true}

	for k, v := range body {
		payload[k] = v
	}

	ctx.JSON(status, payload)
}

// Fail records err for the boundary translator and stops the chain.
// The translator owns the status code and client message.
func Fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
