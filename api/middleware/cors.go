package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",         // local dev
	"https://app.nordtolk.se",       // customer portal
	"https://interpreter.nordtolk.se", // interpreter portal
}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
