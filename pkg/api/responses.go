package api

import "github.com/gin-gonic/gin"

// errorBody is spec.md §7's response envelope: "every API response is
// {error: bool, code?, message, details?}".
func errorBody(code, message string) gin.H {
	body := gin.H{"error": true, "message": message}
	if code != "" {
		body["code"] = code
	}
	return body
}

func okBody(payload gin.H) gin.H {
	if payload == nil {
		payload = gin.H{}
	}
	payload["error"] = false
	return payload
}
