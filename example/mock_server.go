package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// mockTable holds generated readings and appends a new row on an interval.
type mockTable struct {
	mu     sync.Mutex
	rows   []mockRow
	nextID int64
	count  int
}

type mockRow struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	PeopleCount int    `json:"people_count"`
}

// step appends a new reading. The count random-walks so the chart looks
// like a real room filling and emptying.
func (t *mockTable) step() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count += rand.Intn(5) - 2
	if t.count < 0 {
		t.count = 0
	}

	t.nextID++
	t.rows = append(t.rows, mockRow{
		ID:          t.nextID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		PeopleCount: t.count,
	})
}

// query returns rows per the request's order and limit parameters, the way
// a REST table gateway would.
func (t *mockTable) query(order string, limit int) []mockRow {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]mockRow, len(t.rows))
	copy(rows, t.rows)

	if strings.HasSuffix(order, ".desc") {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	if limit > 0 && limit < len(rows) {
		// keep the most recent rows regardless of order direction
		if strings.HasSuffix(order, ".desc") {
			rows = rows[:limit]
		} else {
			rows = rows[len(rows)-limit:]
		}
	}
	return rows
}

// StartMockReadingsServer runs a readings table gateway on addr that grows
// by one row every two seconds. Call this in a goroutine before starting
// the board.
func StartMockReadingsServer(addr string) {
	table := &mockTable{count: 5}
	for i := 0; i < 10; i++ {
		table.step()
	}

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			table.step()
		}
	}()

	http.HandleFunc("/readings", func(w http.ResponseWriter, r *http.Request) {
		order := r.URL.Query().Get("order")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(table.query(order, limit)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
