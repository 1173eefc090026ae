package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"pagebrief/backend/features/document"
	"pagebrief/backend/features/history"
	"pagebrief/backend/features/result"
	"pagebrief/backend/features/speech"
	"pagebrief/backend/features/summarize"
	"pagebrief/backend/features/vision"
	"pagebrief/backend/internal/auth"
	"pagebrief/backend/internal/blob"
	"pagebrief/backend/internal/config"
	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/middleware"
	"pagebrief/backend/internal/poll"
	"pagebrief/backend/internal/resolve"
	"pagebrief/backend/internal/worker"
)

type SearchIndex interface {
	IndexChunks(ctx context.Context, docID, title string, chunks []string) error
	Passages(ctx context.Context, docID, query string) (string, error)
	DeleteDocument(ctx context.Context, docID string) error
}

type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int32, temperature float32) (string, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler       http.Handler
	IndexConsumer *worker.IndexConsumer
	ResultWriter  *worker.ResultConsumer
}

func New(
	cfg *config.Config,
	db *sql.DB,
	searchIndex SearchIndex,
	completer Completer,
	publisher EventPublisher,
	verifier auth.Verifier,
) *App {
	blobs := blob.NewPostgresStore(db)
	docs := docstore.New(blobs, cfg.StalenessWindow())

	dispatcher := dispatch.New(publisher, blobs)
	poller := poll.New()

	resolver := resolve.New(docs, searchIndex, dispatcher, poller, cfg.PollMaxRetries, cfg.PollBaseWait())

	resultPrefixes := map[string]string{
		"vision": cfg.VisionResultPrefix,
		"speech": cfg.SpeechResultPrefix,
	}

	// Feature: Document
	documentService := document.NewService(docs)
	documentHandler := document.NewHandler(documentService)

	// Feature: History
	historyRepo := history.NewPostgresRepo(db)
	historyService := history.NewService(historyRepo)
	historyHandler := history.NewHandler(historyService)

	// Feature: Summarize & Chat
	summarizeService := summarize.NewService(docs, resolver, completer, historyService)
	summarizeHandler := summarize.NewHandler(summarizeService)

	// Feature: Vision & Speech dispatch
	visionHandler := vision.NewHandler(dispatcher)

	resultService := result.NewService(blobs, resultPrefixes)
	resultHandler := result.NewHandler(resultService)

	speechHandler := speech.NewHandler(dispatcher, poller, resultService.Checker("speech"),
		cfg.PollInterval(), cfg.PollCeiling())

	// Workers
	indexConsumer := worker.NewIndexConsumer(docs, searchIndex, cfg.MaxChunkSize)
	resultWriter := worker.NewResultConsumer(blobs, map[string]string{
		string(dispatch.KindImageText):     cfg.VisionResultPrefix,
		string(dispatch.KindTranscription): cfg.SpeechResultPrefix,
	})

	// Routes
	mux := http.NewServeMux()

	cors := middleware.CORS
	mux.Handle("POST /documents", middleware.CorrelationID(cors(documentHandler.Create)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(cors(documentHandler.Get)))
	mux.Handle("OPTIONS /documents", middleware.CorrelationID(cors(documentHandler.Create)))
	mux.Handle("OPTIONS /documents/{id}", middleware.CorrelationID(cors(documentHandler.Get)))

	mux.Handle("POST /summarize", middleware.CorrelationID(cors(auth.Optional(verifier, summarizeHandler.Summarize))))
	mux.Handle("OPTIONS /summarize", middleware.CorrelationID(cors(summarizeHandler.Summarize)))
	mux.Handle("POST /chat", middleware.CorrelationID(cors(summarizeHandler.Chat)))
	mux.Handle("OPTIONS /chat", middleware.CorrelationID(cors(summarizeHandler.Chat)))

	mux.Handle("POST /vision", middleware.CorrelationID(cors(visionHandler.Detect)))
	mux.Handle("OPTIONS /vision", middleware.CorrelationID(cors(visionHandler.Detect)))
	mux.Handle("POST /speech", middleware.CorrelationID(cors(speechHandler.Submit)))
	mux.Handle("OPTIONS /speech", middleware.CorrelationID(cors(speechHandler.Submit)))
	mux.Handle("POST /speech/transcribe", middleware.CorrelationID(cors(speechHandler.Transcribe)))
	mux.Handle("OPTIONS /speech/transcribe", middleware.CorrelationID(cors(speechHandler.Transcribe)))

	mux.Handle("GET /results/{jobId}", middleware.CorrelationID(cors(resultHandler.Get)))
	mux.Handle("OPTIONS /results/{jobId}", middleware.CorrelationID(cors(resultHandler.Get)))

	mux.Handle("GET /history", middleware.CorrelationID(cors(auth.Require(verifier, historyHandler.List))))
	mux.Handle("OPTIONS /history", middleware.CorrelationID(cors(historyHandler.List)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	return &App{
		Handler:       mux,
		IndexConsumer: indexConsumer,
		ResultWriter:  resultWriter,
	}
}

// Server builds the http.Server for the app.
func (a *App) Server(port string) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
