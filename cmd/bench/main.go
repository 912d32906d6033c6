// Command bench runs a synthetic workload against the store and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/shardstore/cache"
	pmet "github.com/IvanBrykalov/shardstore/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		shards   = flag.Int("shards", cache.DefaultShards, "number of shards")
		hashName = flag.String("hash", "resistant", "routing hash: resistant | fast")
		lazy     = flag.Bool("lazy", false, "remove expired entries on read")
		sweep    = flag.Duration("sweep", time.Second, "background sweep interval (0 = disabled)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 90, "read percentage [0..100]")
		ttlPct   = flag.Int("ttl_pct", 20, "percentage of writes that carry a TTL [0..100]")
		ttl      = flag.Duration("ttl", 500*time.Millisecond, "TTL for expiring writes")
		valSize  = flag.Int("value", 64, "value size in bytes")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 100_000, "preload entries")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
		logLevel    = flag.String("log", "info", "log level: debug | info | warn | error")
	)
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "bad -log: %v\n", err)
		os.Exit(2)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	hash, err := cache.ParseHashStrategy(*hashName)
	if err != nil {
		log.Error("bad -hash", "err", err)
		os.Exit(2)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info("pprof: serving", "addr", *pprofAddr)
			log.Error("pprof server stopped", "err", http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	var metrics cache.Metrics
	if *metricsAddr != "" {
		metrics = pmet.New(nil, "shardstore", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics: serving", "addr", *metricsAddr)
			log.Error("metrics server stopped", "err", http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Build store ----
	s := cache.New(cache.Options{
		Shards:              *shards,
		Hash:                hash,
		RemoveExpiredOnRead: *lazy,
		SweepInterval:       *sweep,
		Metrics:             metrics,
		Logger:              log,
	})
	defer func() { _ = s.Close() }()

	value := make([]byte, *valSize)
	for i := range value {
		value[i] = byte('a' + i%26)
	}

	for i := 0; i < *preload; i++ {
		if err := s.Set([]byte("k:"+strconv.Itoa(i)), value, time.Time{}); err != nil {
			log.Error("preload failed", "err", err)
			os.Exit(1)
		}
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	ttlPctVal := *ttlPct
	ttlVal := *ttl
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, failures, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	log.Info("bench: starting",
		"shards", s.Shards(), "hash", hash, "workers", workersN, "duration", *duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)
			buf := make([]byte, 0, 24)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := strconv.AppendUint(append(buf[:0], "k:"...), localZipf.Uint64(), 10)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					_, ok, err := s.Get(k)
					switch {
					case err != nil:
						atomic.AddUint64(&failures, 1)
					case ok:
						atomic.AddUint64(&hits, 1)
					default:
						atomic.AddUint64(&misses, 1)
					}
					continue
				}

				atomic.AddUint64(&writes, 1)
				var err error
				if int(localR.Int31n(100)) < ttlPctVal {
					err = s.SetWithTTL(k, value, ttlVal)
				} else {
					err = s.Set(k, value, time.Time{})
				}
				if err != nil {
					atomic.AddUint64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	removed, err := s.Evict()
	if err != nil {
		log.Warn("final sweep incomplete", "err", err)
	}
	st := s.Stats()

	fmt.Printf("hash=%s shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		hash, s.Shards(), workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  failures=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN, atomic.LoadUint64(&failures))
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("expired=%d (final sweep %d)  Len()=%d  bytes=%d\n",
		st.Expired, removed, s.Len(), st.Bytes)
}
