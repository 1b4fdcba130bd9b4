// Standalone mock readings server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/countboard serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type row struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	PeopleCount int    `json:"people_count"`
}

func main() {
	fmt.Println("Mock readings server starting on :9999")
	fmt.Println("A new row is appended every 2 seconds")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu     sync.Mutex
		rows   []row
		nextID int64
		count  = 5
	)

	step := func() {
		mu.Lock()
		defer mu.Unlock()
		count += rand.Intn(5) - 2
		if count < 0 {
			count = 0
		}
		nextID++
		rows = append(rows, row{
			ID:          nextID,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
			PeopleCount: count,
		})
	}

	for i := 0; i < 10; i++ {
		step()
	}
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			step()
		}
	}()

	http.HandleFunc("/readings", func(w http.ResponseWriter, r *http.Request) {
		order := r.URL.Query().Get("order")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		mu.Lock()
		out := make([]row, len(rows))
		copy(out, rows)
		mu.Unlock()

		if strings.HasSuffix(order, ".desc") {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
			if limit > 0 && limit < len(out) {
				out = out[:limit]
			}
		} else if limit > 0 && limit < len(out) {
			out = out[len(out)-limit:]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
