package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mind-engage/classquiz/internal/apiclient"
)

const maxAttempts = 3

func promptLine(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptChoice shows a numbered list and accepts a number or the exact
// value.
func promptChoice(reader *bufio.Reader, out io.Writer, label string, opts []string) (string, error) {
	for i, o := range opts {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o)
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := promptLine(reader, out, label+": ")
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= len(opts) {
			return opts[n-1], nil
		}
		for _, o := range opts {
			if strings.EqualFold(o, v) {
				return o, nil
			}
		}
		fmt.Fprintf(out, "Please pick 1-%d.\n", len(opts))
	}
	return "", fmt.Errorf("no valid %s chosen", strings.ToLower(label))
}

func describe(err error, serverURL string) error {
	switch apiclient.KindOf(err) {
	case apiclient.KindTransportError:
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	case apiclient.KindUnauthenticated:
		return errors.New("not logged in or session expired; log in again")
	case apiclient.KindClientError:
		return errors.New(apiclient.Message(err))
	}
	return err
}
