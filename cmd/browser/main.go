package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/slask-browser/pkg/common"
	"github.com/matst80/slask-browser/pkg/common/jsoncompat"
	"github.com/matst80/slask-browser/pkg/index"
	"github.com/matst80/slask-browser/pkg/messaging"
	"github.com/matst80/slask-browser/pkg/search"
	"github.com/matst80/slask-browser/pkg/server"
	"github.com/matst80/slask-browser/pkg/storage"
	"github.com/matst80/slask-browser/pkg/types"
)

var dataset = "default"

func init() {
	if d, ok := os.LookupEnv("DATASET"); ok {
		dataset = d
	}
}

func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

type app struct {
	engine    *index.Engine
	storage   *storage.DiskStorage
	queue     *common.QueueHandler[types.Record]
	conn      *amqp.Connection
	broadcast *messaging.Broadcaster
}

// ConnectAmqp subscribes to upstream dataset changes. Upsert batches are
// buffered through the queue handler so bursts coalesce into few rebuilds;
// a reload message replaces the whole collection from disk.
func (a *app) ConnectAmqp(amqpUrl string) {
	conn, err := amqp.DialConfig(amqpUrl, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	a.conn = conn
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open a channel: %v", err)
	}
	err = messaging.ListenToTopic(ch, dataset, messaging.RecordsUpserted, func(d amqp.Delivery) error {
		var records []types.Record
		if err := jsoncompat.Unmarshal(d.Body, &records); err != nil {
			log.Printf("failed to unmarshal upsert message: %v", err)
			return nil
		}
		log.Printf("got %d record upserts", len(records))
		a.queue.Add(records...)
		return nil
	})
	if err != nil {
		log.Fatalf("failed to listen for record upserts: %v", err)
	}
	reloadCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open a channel: %v", err)
	}
	err = messaging.ListenToTopic(reloadCh, dataset, messaging.RecordsReloaded, func(d amqp.Delivery) error {
		records, err := a.storage.LoadRecords()
		if err != nil {
			log.Printf("failed to reload records: %v", err)
			return nil
		}
		a.engine.LoadRecords(records)
		log.Printf("reloaded %d records", len(records))
		return nil
	})
	if err != nil {
		log.Fatalf("failed to listen for reloads: %v", err)
	}
	a.broadcast, err = messaging.NewBroadcaster(conn, dataset)
	if err != nil {
		log.Fatalf("failed to set up change broadcasting: %v", err)
	}
	log.Printf("listening for record changes, dataset %s", dataset)
}

func main() {
	diskStorage := storage.NewDiskStorage(env("DATA_PATH", "data"))
	engine := index.NewEngine(index.EngineOptions{})
	a := &app{
		engine:  engine,
		storage: diskStorage,
		queue: common.NewQueueHandler(func(records []types.Record) {
			engine.UpsertRecords(records)
		}, 500),
	}

	records, err := diskStorage.LoadRecords()
	if err != nil {
		log.Fatalf("failed to load records: %v", err)
	}
	engine.LoadRecords(records)
	log.Printf("loaded %d records", len(records))

	if amqpUrl, ok := os.LookupEnv("AMQP_URL"); ok {
		a.ConnectAmqp(amqpUrl)
	}

	ws := &server.BrowserWebServer{
		Engine:    engine,
		Navigator: search.NewNavigator(engine.Facets(), engine.Selection()),
		Storage:   diskStorage,
		Auth:      server.NewTokenAuth(),
		Broadcast: a.broadcast,
	}
	if redisAddr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		ws.Cache = server.NewCache(redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
		defer ws.Cache.Close()
	}

	mux := http.NewServeMux()
	ws.SetupMux(mux)

	timeouts := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       30 * time.Second,
		// no write timeout, /api/changes holds its stream open
		Write:      0,
		Idle:       120 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       5 * time.Second,
	})
	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    env("LISTEN_ADDR", ":8080"),
		Handler: mux,
	}, timeouts)

	saveHook := func(ctx context.Context) error {
		return diskStorage.SaveRecords(engine.Records())
	}
	closeAmqp := func(ctx context.Context) error {
		if a.conn == nil {
			return nil
		}
		return a.conn.Close()
	}
	common.RunServerWithShutdown(httpServer, "slask-browser", timeouts.Shutdown, timeouts.Hook, saveHook, closeAmqp)
}
