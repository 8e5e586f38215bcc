// Package tasks runs background jobs on a backlite queue stored in its own
// SQLite file next to the catalog database.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

type Client struct {
	queue  *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.Mutex
	started bool
}

// QueuePath returns the task database path for a catalog database path:
// library.db becomes library-tasks.db.
func QueuePath(catalogPath string) string {
	ext := filepath.Ext(catalogPath)
	return strings.TrimSuffix(catalogPath, ext) + "-tasks" + ext
}

// NewClient opens the task database at path and installs the backlite schema.
func NewClient(path string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open task database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          taskLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create task queue: %w", err)
	}
	if err := queue.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install task schema: %w", err)
	}

	return &Client{queue: queue, db: db, config: cfg}, nil
}

// Register adds queues. Call before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.queue.Register(q)
	}
}

// Start launches the workers. A second call is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Printf("Task queue started with %d workers", c.config.Workers)
	c.queue.Start(ctx)
}

// Stop waits for running tasks until ctx expires. It reports whether every
// worker finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return true
	}
	c.started = false

	ok := c.queue.Stop(ctx)
	if ok {
		log.Println("Task queue stopped")
	} else {
		log.Println("Task queue stopped before all tasks completed")
	}
	return ok
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Enqueue saves tasks for processing and returns their ids.
func (c *Client) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	return c.queue.Add(tasks...).Ctx(ctx).Save()
}

func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.queue.Status(ctx, taskID)
}

type taskLogger struct{}

func (taskLogger) Info(message string, params ...any) {
	log.Printf("[TASK] %s %v", message, params)
}

func (taskLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] %s %v", message, params)
}
