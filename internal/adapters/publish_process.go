package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// ProcessPublisherAdapter publishes by running an external command through
// the shell. The command receives the payload as JSON on stdin and inherits
// the output streams.
type ProcessPublisherAdapter struct {
	Command string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

func NewProcessPublisherAdapter(command string, env []string) ProcessPublisherAdapter {
	return ProcessPublisherAdapter{
		Command: strings.TrimSpace(command),
		Env:     env,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a ProcessPublisherAdapter) NewProcedure(payload types.PublishPayload) ports.Procedure {
	return processProcedure{publisher: a, payload: payload}
}

type processProcedure struct {
	publisher ProcessPublisherAdapter
	payload   types.PublishPayload
}

// Run starts the command in its own process group. When ctx is done the
// whole group is killed with SIGKILL, so build tools spawned by the command
// die with it.
func (p processProcedure) Run(ctx context.Context) error {
	if p.publisher.Command == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no publish command configured")
	}
	input, err := json.Marshal(p.payload)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode publish payload").
			WithCause(err)
	}

	cmd := exec.Command("sh", "-c", p.publisher.Command)
	if info, err := os.Stat(p.payload.WorkDir); err == nil && info.IsDir() {
		cmd.Dir = p.payload.WorkDir
	}
	cmd.Env = append(os.Environ(), p.publisher.Env...)
	cmd.Env = append(cmd.Env, publishEnv(p.payload)...)
	cmd.Stdin = strings.NewReader(string(input))
	cmd.Stdout = p.publisher.Stdout
	cmd.Stderr = p.publisher.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to start publish command").
			WithCause(err)
	}
	log.Debug().
		Str("extension", p.payload.ID).
		Int("pid", cmd.Process.Pid).
		Str("command", p.publisher.Command).
		Msg("publish command started")

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return ctx.Err()
	case err := <-done:
		if err == nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("publish command exited with status %d", exitErr.ExitCode())).
				WithCause(err)
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("publish command failed").
			WithCause(err)
	}
}

func publishEnv(payload types.PublishPayload) []string {
	env := []string{
		"EXTENSION_MIRROR_ID=" + payload.ID,
		"EXTENSION_MIRROR_WORKDIR=" + payload.WorkDir,
		"EXTENSION_MIRROR_KIND=" + string(payload.Resolution.Kind),
		"EXTENSION_MIRROR_LOCATION=" + payload.Resolution.Location(),
		"EXTENSION_MIRROR_VERSION=" + payload.Version,
	}
	if payload.Force {
		env = append(env, "EXTENSION_MIRROR_FORCE=1")
	}
	return env
}

var _ ports.PublisherPort = ProcessPublisherAdapter{}
