package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consume(t *testing.T, body string) (State, []State, error) {
	t.Helper()
	var updates []State
	c := NewConsumer(nil, func(s State) { updates = append(updates, s) })
	state, err := c.Consume(context.Background(), strings.NewReader(body), State{Message: "Starting processing..."})
	return state, updates, err
}

func TestFinalStateMatchesLastEvent(t *testing.T) {
	body := `{"progress":10,"message":"Reading"}` + "\n" +
		`{"progress":55.5,"message":"Rendering 5/10"}` + "\n" +
		`{"progress":80,"message":"Zipping"}` + "\n"

	state, updates, err := consume(t, body)
	require.NoError(t, err)
	assert.Equal(t, 80.0, state.Progress)
	assert.Equal(t, "Zipping", state.Message)
	assert.Len(t, updates, 3)
	assert.Equal(t, 55.5, updates[1].Progress)
}

func TestMalformedLineIsSkipped(t *testing.T) {
	body := `{"progress":10,"message":"a"}` + "\n" +
		`{"progress":` + "\n" +
		`not json at all` + "\n" +
		`{"progress":70,"message":"b"}` + "\n"

	state, _, err := consume(t, body)
	require.NoError(t, err)
	assert.Equal(t, 70.0, state.Progress)
	assert.Equal(t, "b", state.Message)
	assert.Equal(t, 2, state.Skipped)
	assert.Equal(t, 2, state.Events)
}

func TestErrorEventStopsProcessing(t *testing.T) {
	body := `{"progress":40,"message":"x"}` + "\n" +
		`{"error":"boom"}` + "\n" +
		`{"progress":90,"message":"never"}` + "\n"

	state, updates, err := consume(t, body)
	require.Error(t, err)

	var reported *ReportedError
	require.True(t, errors.As(err, &reported))
	assert.Equal(t, "boom", reported.Message)
	assert.Equal(t, 40.0, state.Progress)
	assert.Equal(t, "x", state.Message)
	assert.Len(t, updates, 1)
}

func TestReadyFlagsAreAdditive(t *testing.T) {
	body := `{"progress":100,"download_ready":true}` + "\n" +
		`{"print_ready":true,"areas":["North","South"],"docx_files":3}` + "\n" +
		`{"progress":100,"message":"done"}` + "\n"

	state, _, err := consume(t, body)
	require.NoError(t, err)
	assert.True(t, state.DownloadReady)
	assert.True(t, state.PrintReady)
	assert.True(t, state.Succeeded())
	assert.Equal(t, []string{"North", "South"}, state.Areas)
	assert.Equal(t, "done", state.Message)
}

func TestAbsentFieldsKeepPreviousValues(t *testing.T) {
	state, _, err := consume(t, `{"progress":30}`+"\n")
	require.NoError(t, err)
	assert.Equal(t, 30.0, state.Progress)
	assert.Equal(t, "Starting processing...", state.Message)
}

func TestTrailingLineWithoutNewline(t *testing.T) {
	state, _, err := consume(t, `{"progress":10}`+"\n"+`{"progress":100,"download_ready":true}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, state.Progress)
	assert.True(t, state.DownloadReady)
}

func TestOversizedLineIsSkipped(t *testing.T) {
	huge := `{"message":"` + strings.Repeat("x", MaxLineSize+10) + `"}`
	body := `{"progress":20,"message":"a"}` + "\n" +
		huge + "\n" +
		`{"progress":90,"message":"b","download_ready":true}` + "\n"

	state, _, err := consume(t, body)
	require.NoError(t, err)
	assert.Equal(t, 90.0, state.Progress)
	assert.Equal(t, "b", state.Message)
	assert.True(t, state.DownloadReady)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 2, state.Events)
}

func TestLineAtSizeLimitIsKept(t *testing.T) {
	prefix, suffix := `{"progress":40,"message":"`, `"}`
	line := prefix + strings.Repeat("y", MaxLineSize-len(prefix)-len(suffix)) + suffix
	require.Len(t, line, MaxLineSize)

	state, _, err := consume(t, line+"\n")
	require.NoError(t, err)
	assert.Equal(t, 40.0, state.Progress)
	assert.Equal(t, 0, state.Skipped)
}

func TestBlankLinesAndCarriageReturns(t *testing.T) {
	state, _, err := consume(t, "\n\n"+`{"progress":25,"message":"a"}`+"\r\n\n")
	require.NoError(t, err)
	assert.Equal(t, 25.0, state.Progress)
	assert.Equal(t, 0, state.Skipped)
}

func TestProgressIsClamped(t *testing.T) {
	state, _, err := consume(t, `{"progress":140}`+"\n")
	require.NoError(t, err)
	assert.Equal(t, 100.0, state.Progress)
}

// chunkedReader splits one logical line across several reads
type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestLinesSplitAcrossReads(t *testing.T) {
	r := &chunkedReader{chunks: []string{`{"progr`, `ess":60,"mess`, `age":"half"}` + "\n" + `{"progress":`, `90}` + "\n"}}
	state, err := NewConsumer(nil, nil).Consume(context.Background(), r, State{})
	require.NoError(t, err)
	assert.Equal(t, 90.0, state.Progress)
	assert.Equal(t, "half", state.Message)
	assert.Equal(t, 0, state.Skipped)
}

func TestTimeoutIsDistinctFromServerFailure(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	go func() {
		_, _ = io.WriteString(pw, `{"progress":20,"message":"slow"}`+"\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	state, err := NewConsumer(nil, nil).Consume(ctx, pr, State{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))

	var reported *ReportedError
	assert.False(t, errors.As(err, &reported))
	assert.Equal(t, 20.0, state.Progress)
}
