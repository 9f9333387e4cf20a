package main

import (
	_ "embed"
	"flag"
	"log"

	"github.com/gin-gonic/gin"

	"imgshrink/config"
	"imgshrink/session"
	"imgshrink/variant"
	"imgshrink/worker"
)

//go:embed web/index.html
var indexHTML []byte

var (
	cfg   config.Config
	store *session.Store
	pool  *worker.Pool
)

func main() {
	configPath := flag.String("config", "imgshrink.yaml", "path to YAML config file")
	flag.Parse()

	var err error
	cfg, err = config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	store = session.NewStore(cfg.SessionCapacity, cfg.SessionTTL())
	pool = worker.NewPool(cfg.Workers, &variant.Generator{Quality: cfg.JPEGQuality}, store)
	pool.Start()
	defer pool.Stop()

	r := newRouter()

	log.Println("imgshrink server starting on", cfg.ListenAddr)
	r.Run(cfg.ListenAddr)
}

func newRouter() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.GET("/", handleIndex)
	r.GET("/health", handleHealth)
	r.POST("/upload", handleUpload)
	r.POST("/generate", handleGenerate)
	r.GET("/variants", handleVariants)
	r.GET("/download/:client_id/:label", handleDownload)

	return r
}
