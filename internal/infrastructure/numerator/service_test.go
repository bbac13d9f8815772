package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	corenumerator "kardex/internal/core/numerator"
	"kardex/internal/infrastructure/storage/postgres"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
	lastIncr     int64 // Track last increment passed
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Strict strategy passes (prefix string, year int): increment 1.
	// Cached strategy passes (key string, increment int64).
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.lastIncr = increment

	return &mockRow{val: m.currentValue}
}

// txQuerier widens mockQuerier to the postgres.Querier surface.
type txQuerier struct{ *mockQuerier }

func (txQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (txQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

type mockSource struct {
	q    *mockQuerier
	hits int
}

func (m *mockSource) GetQuerier(ctx context.Context) postgres.Querier {
	m.hits++
	return txQuerier{m.q}
}

func TestGetNextNumber_TransactionalSource(t *testing.T) {
	src := &mockSource{q: &mockQuerier{}}
	svc := NewTransactional(src)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("TEST")

	year := time.Now().Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-"+year+"-00001" {
		t.Errorf("expected TEST-%s-00001, got %s", year, num)
	}
	if src.hits != 1 {
		t.Errorf("expected querier to be resolved from context once, got %d", src.hits)
	}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("TEST")

	year := time.Now().Format("2006")

	// 1. First call
	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-"+year+"-00001" { // mock starts at 1
		t.Errorf("expected TEST-%s-00001, got %s", year, num)
	}

	// 2. Second call
	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-"+year+"-00002" {
		t.Errorf("expected TEST-%s-00002, got %s", year, num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")

	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	year := time.Now().Format("2006")

	// 1. First call - triggers DB fetch, allocating range 1..10.
	// DB current_val becomes 10; 1 is returned.
	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-"+year+"-00001" {
		t.Errorf("expected ORD-%s-00001, got %s", year, num)
	}

	// Check DB calls
	if q.currentValue != 10 {
		t.Errorf("expected DB value to be 10, got %d", q.currentValue)
	}

	// 2. Second call - from memory, DB must not change.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-"+year+"-00002" {
		t.Errorf("expected ORD-%s-00002, got %s", year, num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value to stay 10, got %d", q.currentValue)
	}

	// 3. Exhaust the range: 8 more calls reach 10.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	}

	// Next call crosses the boundary and reserves 11..20 from DB.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-"+year+"-00011" {
		t.Errorf("expected ORD-%s-00011, got %s", year, num)
	}
	if q.currentValue != 20 {
		t.Errorf("expected DB value to be 20, got %d", q.currentValue)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		formatted string
		want      int64
	}{
		{"OPN-2026-00042", 42},
		{"TRF-00007", 7},
		{"garbage", -1},
		{"TRF-", -1},
		{"OPN-2026-abc", -1},
	}

	for _, tc := range cases {
		if got := ParseNumber(tc.formatted); got != tc.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tc.formatted, got, tc.want)
		}
	}
}
