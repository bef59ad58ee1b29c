package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/wecord/chat-backend/modules/api"
	"github.com/wecord/chat-backend/modules/broadcast"
	"github.com/wecord/chat-backend/modules/cache"
	"github.com/wecord/chat-backend/modules/room"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Chat Backend - Rooms, Presence, History ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	cacheModule := cache.NewModule(app.Logger())
	roomModule := room.NewModule(app.Logger())
	broadcastModule := broadcast.NewModule(app.Logger())
	apiModule := api.NewModule(app.Logger())

	// Wiring not expressed via ServiceContainer: the history cache handle
	// and the websocket hub are handed over directly.
	roomModule.SetCache(cacheModule.Store())
	apiModule.SetHub(broadcastModule.Hub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - cache: optional Redis-backed history cache
	// - room: core domain (ServiceProviderModule + EventEmitterModule)
	// - broadcast: event consumer fanning out to websocket topics
	// - api: Fiber HTTP/WebSocket server, depends on room
	app.Register(cacheModule)
	app.Register(roomModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                               - Health check")
	log.Println("  POST   /api/v1/rooms                         - Create a room")
	log.Println("  GET    /api/v1/rooms/:roomId                 - Get room details")
	log.Println("  DELETE /api/v1/rooms/:roomId?username=       - Delete a room (creator only)")
	log.Println("  POST   /api/v1/rooms/:roomId/join-user       - Join a room")
	log.Println("  POST   /api/v1/rooms/:roomId/leave-user      - Leave a room")
	log.Println("  GET    /api/v1/rooms/:roomId/online-users    - List online users")
	log.Println("  GET    /api/v1/rooms/:roomId/messages        - Page through history (?page=&size=)")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Frames: SUBSCRIBE/UNSUBSCRIBE {topic}, SEND {destination, body}")
	log.Println("  Topics: room/{roomId}, room/{roomId}/online-users")
	log.Println("  Destinations: sendMessage/{roomId}, joinRoom/{roomId}, leaveRoom/{roomId}")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
