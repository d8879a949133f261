package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rentbase/rentbase/app/controllers"
	"github.com/rentbase/rentbase/internal/pkg/cache"
	"github.com/rentbase/rentbase/internal/pkg/database"
	"github.com/rentbase/rentbase/internal/pkg/env"
	"github.com/rentbase/rentbase/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	controllers.Setup()
	controllers.Sweeper().Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, webhook and API payloads only
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
