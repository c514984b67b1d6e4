// Command stratum-bench drives a synthetic read/write/delete workload
// against a stratumd server to measure throughput and latency.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"
)

type workloadStats struct {
	reads        int64
	writes       int64
	deletes      int64
	errors       int64
	readLatency  int64 // nanoseconds, summed
	writeLatency int64
}

func main() {
	cmd := &cli.Command{
		Name:  "stratum-bench",
		Usage: "benchmark a running stratum server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:7070"},
			&cli.DurationFlag{Name: "duration", Value: 30 * time.Second},
			&cli.IntFlag{Name: "concurrency", Value: 10},
			&cli.FloatFlag{Name: "read-ratio", Value: 0.8},
			&cli.IntFlag{Name: "key-count", Value: 10000},
			&cli.FloatFlag{Name: "hot-key-ratio", Value: 0.2},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	duration := cmd.Duration("duration")
	concurrency := int(cmd.Int("concurrency"))
	readRatio := cmd.Float("read-ratio")
	keyCount := int(cmd.Int("key-count"))
	hotKeyRatio := cmd.Float("hot-key-ratio")

	log.Info().
		Str("addr", addr).
		Dur("duration", duration).
		Int("concurrency", concurrency).
		Float64("read_ratio", readRatio).
		Int("key_count", keyCount).
		Msg("benchmark configuration")

	if err := prepopulate(addr, keyCount/10); err != nil {
		return fmt.Errorf("prepopulation failed: %w", err)
	}

	stats := runWorkload(addr, duration, concurrency, readRatio, keyCount, hotKeyRatio)
	printResults(stats, duration)
	return nil
}

func prepopulate(addr string, count int) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("key-%d", i)
		cmd := fmt.Sprintf("set %s|%s\r", key, generateValue())

		if _, err := writer.WriteString(cmd); err != nil {
			return err
		}
		writer.Flush()
		if _, err := reader.ReadString('\r'); err != nil {
			return err
		}
		if i%1000 == 0 {
			log.Debug().Int("count", i).Msg("prepopulating")
		}
	}
	return nil
}

func runWorkload(addr string, duration time.Duration, concurrency int, readRatio float64, keyCount int, hotKeyRatio float64) *workloadStats {
	stats := &workloadStats{}
	var wg sync.WaitGroup
	stopCh := make(chan struct{})

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker(i, addr, readRatio, keyCount, hotKeyRatio, stats, stopCh, &wg)
	}

	time.Sleep(duration)
	close(stopCh)
	wg.Wait()
	return stats
}

func worker(id int, addr string, readRatio float64, keyCount int, hotKeyRatio float64, stats *workloadStats, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Warn().Int("worker", id).Err(err).Msg("connection failed")
		return
	}
	defer conn.Close()

	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if rng.Float64() < readRatio {
			key := selectKey(rng, keyCount, hotKeyRatio)
			start := time.Now()
			if !roundTrip(writer, reader, fmt.Sprintf("get %s\r", key)) {
				atomic.AddInt64(&stats.errors, 1)
				continue
			}
			atomic.AddInt64(&stats.reads, 1)
			atomic.AddInt64(&stats.readLatency, time.Since(start).Nanoseconds())
			continue
		}

		key := selectKey(rng, keyCount, hotKeyRatio)
		start := time.Now()
		if rng.Float64() < 0.9 {
			ok := roundTrip(writer, reader, fmt.Sprintf("set %s|%s\r", key, generateValue()))
			if !ok {
				atomic.AddInt64(&stats.errors, 1)
				continue
			}
			atomic.AddInt64(&stats.writes, 1)
		} else {
			ok := roundTrip(writer, reader, fmt.Sprintf("delete %s\r", key))
			if !ok {
				atomic.AddInt64(&stats.errors, 1)
				continue
			}
			atomic.AddInt64(&stats.deletes, 1)
		}
		atomic.AddInt64(&stats.writeLatency, time.Since(start).Nanoseconds())
	}
}

func roundTrip(w *bufio.Writer, r *bufio.Reader, cmd string) bool {
	if _, err := w.WriteString(cmd); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	_, err := r.ReadString('\r')
	return err == nil
}

// selectKey implements an 80/20 hot-key access pattern.
func selectKey(rng *rand.Rand, keyCount int, hotKeyRatio float64) string {
	hotKeyCount := int(float64(keyCount) * hotKeyRatio)
	if hotKeyCount < 1 {
		hotKeyCount = 1
	}

	if rng.Float64() < 0.8 {
		return fmt.Sprintf("key-%d", rng.Intn(hotKeyCount))
	}
	return fmt.Sprintf("key-%d", hotKeyCount+rng.Intn(keyCount-hotKeyCount))
}

const valueCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateValue produces a Str value of varying size: 70% small (100B-1KB),
// 20% medium (1-10KB), 10% large (10-100KB).
func generateValue() string {
	roll := rand.Float64()
	var size int
	switch {
	case roll < 0.7:
		size = 100 + rand.Intn(924)
	case roll < 0.9:
		size = 1024 + rand.Intn(9*1024)
	default:
		size = 10*1024 + rand.Intn(90*1024)
	}

	b := make([]byte, size)
	for i := range b {
		b[i] = valueCharset[rand.Intn(len(valueCharset))]
	}
	return string(b)
}

func printResults(stats *workloadStats, duration time.Duration) {
	reads := atomic.LoadInt64(&stats.reads)
	writes := atomic.LoadInt64(&stats.writes)
	deletes := atomic.LoadInt64(&stats.deletes)
	errs := atomic.LoadInt64(&stats.errors)
	total := reads + writes + deletes
	durationSec := duration.Seconds()

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("BENCHMARK RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total ops: %d  reads=%d writes=%d deletes=%d errors=%d\n", total, reads, writes, deletes, errs)
	fmt.Printf("Throughput: %.2f ops/sec\n", float64(total)/durationSec)
	if reads > 0 {
		fmt.Printf("Avg read latency:  %v\n", time.Duration(atomic.LoadInt64(&stats.readLatency)/reads))
	}
	if writes+deletes > 0 {
		fmt.Printf("Avg write latency: %v\n", time.Duration(atomic.LoadInt64(&stats.writeLatency)/(writes+deletes)))
	}
	fmt.Println(strings.Repeat("=", 60))
}
