package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var (
	memfsBin string
	projRoot string
)

func TestMain(m *testing.M) {
	// Build the memfs binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "memfs-bin")
	if err != nil {
		panic(err)
	}

	memfsBin = filepath.Join(tmpBinDir, "memfs")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")

	cmd := exec.Command("go", "build", "-o", memfsBin, "./cmd")
	cmd.Dir = projRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	code := m.Run()
	_ = os.RemoveAll(tmpBinDir)
	os.Exit(code)
}

func TestE2EServePersistsForShell(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "state.json")

	srv := StartServer(t, snapshot)
	srv.MustPost(t, "/mkdir/docs")
	srv.MustPost(t, "/echo/docs%2Fnotes.txt?text=first%5Cnsecond")

	var cat struct {
		Contents string `json:"contents"`
	}
	srv.GetJSON(t, "/cat/docs%2Fnotes.txt", &cat)
	if cat.Contents != "first\nsecond" {
		t.Fatalf("content mismatch: got %q", cat.Contents)
	}
	srv.Stop()

	// The state file written by the server must be readable by a fresh shell
	out := RunShell(t, snapshot, "cat /docs/notes.txt\ngrep /docs/notes.txt sec\n")
	if !strings.Contains(out, "Contents of '/docs/notes.txt':\nfirst\nsecond\n") {
		t.Fatalf("shell did not see server state:\n%s", out)
	}
	if !strings.Contains(out, "Matching lines:\n  second\n") {
		t.Fatalf("grep output mismatch:\n%s", out)
	}
}

func TestE2EStateFileLayout(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "state.json")
	RunShell(t, snapshot, "mkdir a\ntouch /a/f\n")

	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("failed to read state file: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("state file is not JSON: %v", err)
	}
	root, ok := doc["/"].(map[string]any)
	if !ok || root["type"] != "directory" {
		t.Fatalf("unexpected root entry: %v", doc["/"])
	}
}

func TestE2EWatchPicksUpShellWrites(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "state.json")
	RunShell(t, snapshot, "mkdir before\n")

	srv := StartServer(t, snapshot, "--watch")
	defer srv.Stop()

	RunShell(t, snapshot, "mkdir after\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var ls struct {
			Contents []string `json:"contents"`
		}
		srv.GetJSON(t, "/ls?path=/", &ls)
		if len(ls.Contents) == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	stdout, stderr := srv.GetLogs()
	t.Fatalf("server never reloaded the snapshot\nstdout:\n%s\nstderr:\n%s", stdout, stderr)
}

// ServerInstance is a running `memfs serve` process
type ServerInstance struct {
	cmd    *exec.Cmd
	URL    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	done   chan error
}

// StartServer runs `memfs serve` against snapshot on a free port and waits
// until it answers
func StartServer(t *testing.T, snapshot string, extra ...string) *ServerInstance {
	t.Helper()

	addr := freeAddr(t)
	args := append([]string{"--snapshot", snapshot, "-v", "4", "serve", "--listen", addr}, extra...)
	cmd := exec.Command(memfsBin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start memfs: %v", err)
	}

	s := &ServerInstance{
		cmd:    cmd,
		URL:    "http://" + addr,
		stdout: &stdout,
		stderr: &stderr,
		done:   make(chan error, 1),
	}
	go func() { s.done <- cmd.Wait() }()

	if err := s.WaitReady(10 * time.Second); err != nil {
		s.Stop()
		t.Fatalf("memfs server not ready: %v\n%s", err, stderr.String())
	}
	return s
}

// Stop interrupts the server and waits for it to flush and exit
func (s *ServerInstance) Stop() {
	if s.cmd.Process == nil {
		return
	}
	_ = s.cmd.Process.Signal(os.Interrupt) // may have already exited

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		_ = s.cmd.Process.Kill()
		<-s.done
	}
	s.cmd.Process = nil
}

// WaitReady polls /pwd until the server responds
func (s *ServerInstance) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.URL + "/pwd")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for %s", s.URL)
}

// MustPost sends a POST and fails the test on a non-200 reply
func (s *ServerInstance) MustPost(t *testing.T, path string) {
	t.Helper()
	resp, err := http.Post(s.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d: %s", path, resp.StatusCode, body)
	}
}

// GetJSON sends a GET and decodes the reply into out
func (s *ServerInstance) GetJSON(t *testing.T, path string, out any) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("GET %s: decode: %v", path, err)
	}
}

// GetLogs returns the stdout and stderr from the server process
func (s *ServerInstance) GetLogs() (stdout, stderr string) {
	return s.stdout.String(), s.stderr.String()
}

// RunShell pipes input into `memfs shell` and returns its stdout
func RunShell(t *testing.T, snapshot, input string) string {
	t.Helper()

	cmd := exec.Command(memfsBin, "--snapshot", snapshot, "-v", "1", "shell")
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("shell failed: %v\n%s", err, stderr.String())
	}
	return stdout.String()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
