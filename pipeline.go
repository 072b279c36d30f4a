package rsp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pior/rsp/wire"
)

// ErrEmptyPipeline is returned when executing a pipeline without commands.
var ErrEmptyPipeline = errors.New("rsp: empty pipeline")

// Pipeline accumulates commands executed as a single request, each command
// receiving the output of the previous one.
//
//	v, err := client.Pipeline().
//		Extract("seismo-1", from, to).
//		Format("audio/wav", 48000, 1, 16).
//		Execute(ctx)
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	client   *Client
	commands []string
}

func (p *Pipeline) add(format string, args ...any) *Pipeline {
	p.commands = append(p.commands, fmt.Sprintf(format, args...))
	return p
}

// Create adds CREATE '<id>' <sample_rate> <channels> <bit_depth>.
func (p *Pipeline) Create(streamID string, sampleRate uint32, channels, bitDepth uint16) *Pipeline {
	return p.add("CREATE '%s' %d %d %d", streamID, sampleRate, channels, bitDepth)
}

// Open adds OPEN '<id>'.
func (p *Pipeline) Open(streamID string) *Pipeline {
	return p.add("OPEN '%s'", streamID)
}

// Close adds CLOSE '<id>'.
func (p *Pipeline) Close(streamID string) *Pipeline {
	return p.add("CLOSE '%s'", streamID)
}

// Meta adds META '<id>' '<attr>'.
func (p *Pipeline) Meta(streamID, attr string) *Pipeline {
	return p.add("META '%s' '%s'", streamID, attr)
}

// Info adds INFO '<id>' '<attr>'.
func (p *Pipeline) Info(streamID, attr string) *Pipeline {
	return p.add("INFO '%s' '%s'", streamID, attr)
}

// List adds LIST '<pattern>'.
func (p *Pipeline) List(pattern string) *Pipeline {
	return p.add("LIST '%s'", pattern)
}

// Search adds SEARCH '<pattern>'.
func (p *Pipeline) Search(pattern string) *Pipeline {
	return p.add("SEARCH '%s'", pattern)
}

// Extract adds EXTRACT '<id>' <from> <to>, with times in RFC 3339 UTC.
func (p *Pipeline) Extract(streamID string, from, to time.Time) *Pipeline {
	return p.add("EXTRACT '%s' %s %s", streamID, formatTime(from), formatTime(to))
}

// Format adds FORMAT '<mime>' <sample_rate> <channels> <bit_depth>.
func (p *Pipeline) Format(mimeType string, sampleRate uint32, channels, bitDepth uint16) *Pipeline {
	return p.add("FORMAT '%s' %d %d %d", mimeType, sampleRate, channels, bitDepth)
}

// Range adds RANGE '<id>' <start> <duration>, in seconds with 6 decimals.
func (p *Pipeline) Range(streamID string, start, duration float64) *Pipeline {
	return p.add("RANGE '%s' %.6f %.6f", streamID, start, duration)
}

// Encode adds ENCODE '<mime>'.
func (p *Pipeline) Encode(mimeType string) *Pipeline {
	return p.add("ENCODE '%s'", mimeType)
}

// Eval adds EVAL '<expr>'.
func (p *Pipeline) Eval(expr string) *Pipeline {
	return p.add("EVAL '%s'", expr)
}

func (p *Pipeline) Ping() *Pipeline {
	return p.add("PING")
}

func (p *Pipeline) Shutdown() *Pipeline {
	return p.add("SHUTDOWN")
}

// Raw adds a command verbatim.
func (p *Pipeline) Raw(command string) *Pipeline {
	p.commands = append(p.commands, command)
	return p
}

// Len returns the number of commands.
func (p *Pipeline) Len() int {
	return len(p.commands)
}

// String returns the commands joined with the pipe separator.
func (p *Pipeline) String() string {
	return strings.Join(p.commands, wire.PipeSeparator)
}

// Execute sends the pipeline as one command. The pipeline is left unchanged.
func (p *Pipeline) Execute(ctx context.Context) (wire.Value, error) {
	if len(p.commands) == 0 {
		return nil, ErrEmptyPipeline
	}

	command := p.String()
	p.client.logger.Debug().Str("command", command).Msg("executing pipeline")

	p.client.stats.recordPipeline()
	return p.client.Execute(ctx, command)
}

// Reset removes all commands.
func (p *Pipeline) Reset() {
	p.commands = p.commands[:0]
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
