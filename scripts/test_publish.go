//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	requestStream = "stream:materialize:request"
	doneStream    = "stream:materialize:done"
)

type materializeRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	reason := flag.String("reason", "manual test", "reason recorded in the run summary")
	wait := flag.Duration("wait", 30*time.Minute, "how long to wait for the run summary")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	req := materializeRequest{
		RequestID:   uuid.New(),
		RequestedBy: "scripts/test_publish",
		Reason:      *reason,
	}

	data, err := json.Marshal(req)
	if err != nil {
		log.Fatalf("Failed to marshal request: %v", err)
	}

	// remember where the done stream ends so only new summaries are read
	lastID := "$"
	if last, err := client.XRevRangeN(ctx, doneStream, "+", "-", 1).Result(); err == nil && len(last) > 0 {
		lastID = last[0].ID
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: requestStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish request: %v", err)
	}

	fmt.Printf("Request published\n")
	fmt.Printf("   Stream: %s\n", requestStream)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Request ID: %s\n", req.RequestID)
	fmt.Printf("\nWaiting for run summary in %s...\n", doneStream)

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		results, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{doneStream, lastID},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			log.Printf("read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				dataStr, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}

				var summary map[string]interface{}
				if err := json.Unmarshal([]byte(dataStr), &summary); err != nil {
					continue
				}
				if summary["request_id"] == req.RequestID.String() {
					pretty, _ := json.MarshalIndent(summary, "", "  ")
					fmt.Printf("\nRun summary received:\n%s\n", pretty)
					return
				}
			}
		}
	}
	fmt.Println("Timeout waiting for run summary")
}
