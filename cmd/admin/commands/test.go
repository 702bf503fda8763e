package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caretrack/followup-api/internal/config"
	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test backend connectivity",
		Long:  "Check that the database, Redis, and RabbitMQ are reachable with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			failed := false

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				fmt.Printf("✗ database: %v\n", err)
				failed = true
			} else {
				defer closeDB(db)
				if err := db.PingContext(ctx); err != nil {
					fmt.Printf("✗ database: %v\n", err)
					failed = true
				} else {
					fmt.Println("✓ database is reachable")
				}
			}

			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				fmt.Printf("✗ redis: %v\n", err)
				failed = true
			} else {
				redisClient := redis.NewClient(redisOpts)
				defer func() {
					if err := redisClient.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close redis: %v\n", err)
					}
				}()
				if err := redisClient.Ping(ctx).Err(); err != nil {
					fmt.Printf("✗ redis: %v\n", err)
					failed = true
				} else {
					fmt.Println("✓ redis is reachable")
				}
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				fmt.Printf("✗ rabbitmq: %v\n", err)
				failed = true
			} else {
				defer func() {
					if err := jobQueue.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close rabbitmq: %v\n", err)
					}
				}()
				if err := jobQueue.HealthCheck(ctx); err != nil {
					fmt.Printf("✗ rabbitmq: %v\n", err)
					failed = true
				} else {
					fmt.Println("✓ rabbitmq is reachable")
				}
			}

			if failed {
				return fmt.Errorf("connectivity test failed")
			}
			fmt.Println("\n✓ all backends reachable")
			return nil
		},
	}

	return cmd
}
