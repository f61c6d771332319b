package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func fakeDesktop(goos string, found bool, runErr error) (*Desktop, *[]call) {
	var calls []call
	d := &Desktop{
		GOOS: goos,
		LookPath: func(name string) (string, error) {
			if !found {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + name, nil
		},
		Run: func(_ context.Context, name string, args ...string) error {
			calls = append(calls, call{name: name, args: args})
			return runErr
		},
	}
	return d, &calls
}

func TestDesktopLinux(t *testing.T) {
	d, calls := fakeDesktop("linux", true, nil)
	require.NoError(t, d.Notify(context.Background(), "Feed", "now"))
	require.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, []string{"--app-name=tuifeed", "Feed", "now"}, (*calls)[0].args)
}

func TestDesktopDarwinQuotes(t *testing.T) {
	d, calls := fakeDesktop("darwin", true, nil)
	require.NoError(t, d.Notify(context.Background(), `Say "hi"`, ""))
	require.Len(t, *calls, 1)
	assert.Equal(t, "osascript", (*calls)[0].name)
	assert.Equal(t, []string{"-e", `display notification "" with title "Say \"hi\""`}, (*calls)[0].args)
}

func TestDesktopUnsupported(t *testing.T) {
	d, calls := fakeDesktop("plan9", true, nil)
	assert.ErrorIs(t, d.Notify(context.Background(), "x", ""), ErrUnsupported)

	d, calls = fakeDesktop("linux", false, nil)
	assert.ErrorIs(t, d.Notify(context.Background(), "x", ""), ErrUnsupported)
	assert.Empty(t, *calls)
}

func TestFallbackUsesBell(t *testing.T) {
	var buf bytes.Buffer
	d, _ := fakeDesktop("linux", true, errors.New("no bus"))
	n := Fallback{Primary: d, Secondary: Bell{W: &buf}}

	require.NoError(t, n.Notify(context.Background(), "Feed", "soon"))
	assert.Equal(t, "\aFeed: soon\n", buf.String())
}

func TestFallbackWithoutSecondaryReturnsError(t *testing.T) {
	d, _ := fakeDesktop("plan9", true, nil)
	err := Fallback{Primary: d}.Notify(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrUnsupported)
}
