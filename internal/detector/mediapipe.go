package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when the vision service script cannot be located.
var ErrScriptNotFound = errors.New("vision_service.py not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running the pose, face and object landmarkers.
type MediaPipeDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started by Init and restarted lazily after idling.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findVisionScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	return &MediaPipeDetector{
		config: config,
		script: scriptPath,
	}, nil
}

// Init starts the service and waits for its model-loading handshake.
func (d *MediaPipeDetector) Init(ctx context.Context) error {
	type outcome struct{ err error }
	done := make(chan outcome, 1)

	go func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		done <- outcome{err: d.ensureStarted()}
	}()

	select {
	case <-ctx.Done():
		// The start goroutine still owns the lock; shut down once it returns.
		go func() {
			<-done
			d.Close()
		}()
		return fmt.Errorf("init vision service: %w", ctx.Err())
	case o := <-done:
		return o.err
	}
}

// Detect sends one frame and returns the combined pose, face and object result.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, at time.Time) (*Result, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Header: timestamp ms (8 bytes) + payload length (4 bytes), big-endian.
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], uint64(at.UnixMilli()))
	binary.BigEndian.PutUint32(header[8:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	result, err := decodeResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.script)
	d.cmd.Env = append(os.Environ(),
		"VISION_MAX_POSES="+strconv.Itoa(d.config.MaxPoses),
		"VISION_MAX_FACES="+strconv.Itoa(d.config.MaxFaces),
		"VISION_MAX_OBJECTS="+strconv.Itoa(d.config.MaxObjects),
		"VISION_MIN_CONFIDENCE="+strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"VISION_MIN_TRACKING="+strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
		"VISION_OBJECT_SCORE="+strconv.FormatFloat(d.config.ObjectScoreThreshold, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start vision service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.shutdown()
		return fmt.Errorf("read handshake: %w", err)
	}
	if err := decodeHandshake([]byte(line)); err != nil {
		d.shutdown()
		return err
	}

	d.lastUsed = time.Now()
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findVisionScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/vision_service.py",
		"../scripts/vision_service.py",
		filepath.Join(execDir, "scripts/vision_service.py"),
		filepath.Join(os.Getenv("HOME"), ".intelevision/scripts/vision_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".intelevision/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// serviceResponse is one JSON line from the Python service.
type serviceResponse struct {
	Ready   bool     `json:"ready,omitempty"`
	Error   string   `json:"error,omitempty"`
	Poses   []Pose   `json:"poses"`
	Faces   []Face   `json:"faces"`
	Objects []Object `json:"objects"`
}

func decodeHandshake(line []byte) error {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("vision service failed to load: %s", resp.Error)
	}
	if !resp.Ready {
		return errors.New("vision service did not report ready")
	}
	return nil
}

func decodeResponse(line []byte) (*Result, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("vision service: %s", resp.Error)
	}

	return &Result{
		Poses:   resp.Poses,
		Faces:   resp.Faces,
		Objects: resp.Objects,
	}, nil
}
