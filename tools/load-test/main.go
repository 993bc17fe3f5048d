package main

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	// Run the agent with LOCATION_SOURCE=sim so every capture gets a fix
	url := "http://localhost:8080/api/v1/clock"
	contentType := "application/json"

	numWorkers := 200
	clocksPerWorker := 2 // one IN, one OUT
	totalRequests := numWorkers * clocksPerWorker
	concurrency := 20 // The queue is one sqlite file; more just contends on the write lock

	fmt.Printf("Starting load test: %d workers (%d clocks each) to %s with concurrency %d\n", numWorkers, clocksPerWorker, url, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount int64
	var failCount int64

	startTime := time.Now()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		workerID := i + 1

		go func(id int) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			for _, kind := range []string{"IN", "OUT"} {
				payload := []byte(fmt.Sprintf(`{"workerId": %d, "kind": "%s"}`, id, kind))

				resp, err := http.Post(url, contentType, bytes.NewBuffer(payload))
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}

				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					atomic.AddInt64(&successCount, 1)
				} else {
					atomic.AddInt64(&failCount, 1)
				}
				resp.Body.Close()
			}
		}(workerID)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}
