package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tickethub/orders-service/internal/clock"
	"github.com/tickethub/orders-service/internal/config"
	"github.com/tickethub/orders-service/internal/database"
	"github.com/tickethub/orders-service/internal/handler"
	"github.com/tickethub/orders-service/internal/listener"
	"github.com/tickethub/orders-service/internal/publisher"
	"github.com/tickethub/orders-service/internal/queue"
	"github.com/tickethub/orders-service/internal/repository"
	"github.com/tickethub/orders-service/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	tickets := repository.NewTicketRepo(db)
	orders := repository.NewOrderRepo(db)

	bus := queue.NewBus(cfg.AMQPURL, cfg.Exchange, queue.QueueGroup)
	created := &publisher.OrderCreated{Bus: bus}
	canceled := &publisher.OrderCanceled{Bus: bus}

	bus.Register(&listener.TicketCreated{Tickets: tickets})
	bus.Register(&listener.TicketUpdated{Tickets: tickets})
	bus.Register(&listener.PaymentCreated{Orders: orders})
	bus.Register(&listener.ExpirationComplete{Orders: orders, Canceled: canceled})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := bus.StartConsumer(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	h := handler.NewOrderHandler(tickets, orders, created, canceled, clock.NewSystem(), cfg.ExpirationWindow)
	router.RegisterOrders(e, h, cfg.JWTSecret, config.LoadRateLimitConfig(), config.NewRedisClient())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
