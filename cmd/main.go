// cmd/main.go
package main

import (
	"go-trip-api/app"
	"go-trip-api/logger"
	"os"
)

// @title           Go-Trip API
// @version         1.0
// @description     Trip planning API with rotating refresh-token sessions.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(os.Args[1:]); err != nil {
		logger.Log.Fatal(err)
	}
}
