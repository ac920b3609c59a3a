package main

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/money-magnet/backend/internal/categorizer"
	"github.com/money-magnet/backend/internal/classifier"
	v1 "github.com/money-magnet/backend/internal/controllers/v1"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/internal/router"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	// Create data directory
	dataDir := filepath.Join(".", "data")
	err := os.MkdirAll(dataDir, os.ModePerm)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	dbPath, ok := os.LookupEnv("DB_PATH")
	if !ok {
		dbPath = filepath.Join(dataDir, "money-magnet.db")
	}

	err = models.Connect(dbPath)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// The categorization webhook is optional. Without it, transactions
	// are still matched against learned mappings, but unknown merchants
	// stay uncategorized until a user assigns a category.
	var cls classifier.Classifier = classifier.None{}
	if classifierURL, ok := os.LookupEnv("CLASSIFIER_URL"); ok && classifierURL != "" {
		timeout := 15 * time.Second
		if raw, ok := os.LookupEnv("CLASSIFIER_TIMEOUT"); ok {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				log.Fatal().Str("CLASSIFIER_TIMEOUT", raw).Msg(err.Error())
			}
			timeout = parsed
		}
		cls = classifier.NewWebhook(classifierURL, timeout)
		log.Info().Str("url", classifierURL).Msg("classifier webhook configured")
	}

	engine := categorizer.New(models.DB, cls, categorizer.Config{})

	// The base URL is used to generate resource links in responses
	apiURL, ok := os.LookupEnv("API_URL")
	if !ok {
		apiURL = "http://localhost:8080"
	}

	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		log.Fatal().Str("API_URL", apiURL).Msg(err.Error())
	}

	r, teardown, err := router.Config(parsedURL)
	defer teardown()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	router.AttachRoutes(v1.Controller{Engine: engine}, r.Group("/"))

	if err := r.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}
