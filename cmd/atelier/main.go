package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao"
	"github.com/atelier-edu/atelier/internal"
	"github.com/atelier-edu/atelier/internal/handler"
	"github.com/atelier-edu/atelier/pkg/alert"
	"github.com/atelier-edu/atelier/pkg/allocator"
	"github.com/atelier-edu/atelier/pkg/config"
	"github.com/atelier-edu/atelier/pkg/cronjob"
	"github.com/atelier-edu/atelier/pkg/evalstore"
	"github.com/atelier-edu/atelier/pkg/grader"
	"github.com/atelier-edu/atelier/pkg/limiter"
	"github.com/atelier-edu/atelier/pkg/monitor"
	"github.com/atelier-edu/atelier/pkg/progress"
	"github.com/atelier-edu/atelier/pkg/recommend"
	"github.com/atelier-edu/atelier/pkg/registry"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if gin.Mode() == gin.DebugMode {
		// Local development loads secrets from .env; in the cluster the
		// config file is mounted instead.
		_ = godotenv.Load()
	}

	conf := config.GetConfig()
	db := dao.GetDB()
	if err := dao.Migrate(db); err != nil {
		klog.Fatalf("database migration: %v", err)
	}

	sink := alert.GetSink()

	var forecaster *progress.Forecaster
	if conf.Forecaster.URL != "" {
		forecaster = progress.NewForecaster(conf.Forecaster.URL,
			time.Duration(conf.Forecaster.TimeoutSeconds)*time.Second)
	}
	tracker := progress.NewTracker(db, forecaster)

	var recommender allocator.Recommender
	if conf.Recommender.URL != "" {
		recommender = recommend.NewClient(recommend.Config{
			URL:        conf.Recommender.URL,
			APIKey:     conf.Recommender.APIKey,
			Model:      conf.Recommender.Model,
			Timeout:    time.Duration(conf.Recommender.TimeoutSeconds) * time.Second,
			RetryCount: conf.Recommender.RetryCount,
		})
	}

	capacityCache := limiter.GetCapacityCache()

	cronMgr := cronjob.NewManager(db, tracker, sink)
	if err := cronMgr.RegisterJobs(conf); err != nil {
		klog.Fatalf("cron jobs: %v", err)
	}
	cronMgr.Start()
	defer cronMgr.Stop()

	backend := internal.Register(&handler.RegisterConfig{
		DB:            db,
		Registry:      registry.NewRegistry(db),
		Allocator:     allocator.New(db, recommender, sink, capacityCache),
		Tracker:       tracker,
		EvalStore:     evalstore.NewStore(db, grader.New(conf.RubricWeights), sink),
		Sink:          sink,
		LoginLimiter:  limiter.GetLoginLimiter(),
		CapacityCache: capacityCache,
	})

	if conf.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", monitor.Handler())
			server := &http.Server{
				Addr:              conf.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			if err := server.ListenAndServe(); err != nil {
				klog.Errorf("metrics server: %v", err)
			}
		}()
	}

	addr := conf.ServerAddr
	if addr == "" {
		addr = ":8088"
	}
	if err := backend.R.Run(addr); err != nil {
		klog.Fatalf("server: %v", err)
	}
}
