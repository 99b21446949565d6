package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-minutes-client/internal/apierror"
	"ai-minutes-client/internal/entity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/transport"
)

// MaxUploadBytes is the largest recording the server accepts.
const MaxUploadBytes = 50 * 1024 * 1024

// Phase is a display label derived purely from the current percent.
type Phase string

const (
	PhaseUploading    Phase = "Uploading audio..."
	PhaseTranscribing Phase = "Transcribing audio..."
	PhaseSummarizing  Phase = "Generating summary..."
	PhaseFinishing    Phase = "Almost done..."
)

// PhaseFor maps a progress percent onto its phase label. Phases carry no
// state of their own.
func PhaseFor(percent int) Phase {
	switch {
	case percent < 30:
		return PhaseUploading
	case percent < 60:
		return PhaseTranscribing
	case percent < 95:
		return PhaseSummarizing
	default:
		return PhaseFinishing
	}
}

// ProgressUpdate is one tick of the simulated progress signal.
type ProgressUpdate struct {
	Percent int
	Phase   Phase
}

// UploadResult settles an upload: either the id of the newly created
// document, or the error that abandoned it.
type UploadResult struct {
	Document *entity.Document
	Err      error
}

type IUploadService interface {
	// Process validates the file before any network call, then uploads it
	// while emitting simulated progress. Both channels are closed when the
	// upload settles; the result channel delivers exactly one value.
	Process(ctx context.Context, filePath, title string) (<-chan ProgressUpdate, <-chan UploadResult, error)
}

// uploadService drives the single long-running ingestion call and the
// interval-driven progress generator that represents it. The generator is
// torn down on every exit path so it can never outlive the call.
type uploadService struct {
	client *transport.Client
	log    logger.ILogger

	// Tunable for tests; production uses the defaults.
	tickInterval time.Duration
	settleDelay  time.Duration
}

func NewUploadService(client *transport.Client, log logger.ILogger) IUploadService {
	return &uploadService{
		client:       client,
		log:          log,
		tickInterval: 500 * time.Millisecond,
		settleDelay:  500 * time.Millisecond,
	}
}

// audioExtensions is the accepted recording format allow-list.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// validate rejects the file client-side. A rejected file never reaches the
// network layer.
func validate(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return apierror.NewValidation("could not read the selected file")
	}
	if info.IsDir() {
		return apierror.NewValidation("the selected path is a directory, not an audio file")
	}
	if info.Size() > MaxUploadBytes {
		return apierror.NewValidation("file is too large, maximum size is 50MB")
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if !audioExtensions[ext] {
		return apierror.NewValidation("please upload an audio file (mp3, wav, m4a, flac, ogg)")
	}
	if declared := mime.TypeByExtension(ext); declared != "" && !strings.HasPrefix(declared, "audio/") {
		return apierror.NewValidation("please upload an audio file")
	}
	return nil
}

func (s *uploadService) Process(ctx context.Context, filePath, title string) (<-chan ProgressUpdate, <-chan UploadResult, error) {
	if err := validate(filePath); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(title) == "" {
		// Same default the original form applied: file name minus extension.
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, apierror.NewValidation("could not open the selected file")
	}

	progress := make(chan ProgressUpdate, 64)
	result := make(chan UploadResult, 1)

	go s.run(ctx, file, filepath.Base(filePath), title, progress, result)
	return progress, result, nil
}

func (s *uploadService) run(ctx context.Context, file io.ReadCloser, fileName, title string, progress chan<- ProgressUpdate, result chan<- UploadResult) {
	defer close(progress)
	defer close(result)
	defer file.Close()

	done := make(chan struct{})
	var doc entity.Document
	var callErr error
	go func() {
		defer close(done)
		callErr = s.client.PostMultipart(ctx, "/audio/process",
			map[string]string{"title": title}, "audio", fileName, file, &doc)
	}()

	emit := func(percent int) {
		select {
		case progress <- ProgressUpdate{Percent: percent, Phase: PhaseFor(percent)}:
		default:
			// Slow consumer; drop the tick rather than stall the upload.
		}
	}

	percent := 0
	emit(percent)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if percent < 95 {
				percent += 5
				emit(percent)
			}
		case <-done:
			ticker.Stop()
			if callErr != nil {
				s.log.Warn("upload", "processing failed", map[string]interface{}{"error": callErr.Error()})
				result <- UploadResult{Err: wrapUploadErr(callErr)}
				return
			}
			// Terminal success: force 100, then hold briefly so the
			// indicator is seen before navigation.
			emit(100)
			time.Sleep(s.settleDelay)
			s.log.Info("upload", "processing complete", map[string]interface{}{"id": doc.Id})
			result <- UploadResult{Document: &doc}
			return
		}
	}
}

func wrapUploadErr(err error) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.NewNetwork(fmt.Sprintf("error processing audio: %v", err), err)
}
