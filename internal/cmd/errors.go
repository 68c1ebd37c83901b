package cmd

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/present"
)

func handleError(w io.Writer, err error) {
	format := "\n%s\n\n"
	styles := present.StderrStyles()

	var ferr flagParseError
	if errors.As(err, &ferr) {
		args := []any{
			fmt.Sprintf(
				"Check out %s %s",
				styles.InlineCode.Render("blgate -h"),
				styles.Comment.Render("for help."),
			),
			fmt.Sprintf(
				ferr.ReasonFormat(),
				styles.InlineCode.Render(ferr.Flag()),
			),
		}
		fmt.Fprintf(w, format+"%s\n\n", args...)
		return
	}

	var merr errs.Error
	if errors.As(err, &merr) && merr.Reason != "" {
		formatArgs := []any{styles.ErrPadding.Render(styles.ErrorHeader.String(), merr.Reason)}
		if merr.Err != nil {
			format += "%s\n\n"
			formatArgs = append(formatArgs, styles.ErrPadding.Render(styles.ErrorDetails.Render(err.Error())))
		}
		fmt.Fprintf(w, format, formatArgs...)
		return
	}

	fmt.Fprintf(w, format, styles.ErrPadding.Render(styles.ErrorDetails.Render(err.Error())))
}

// flagParseError is a Cobra flag error reworded for humans.
type flagParseError struct {
	err    error
	reason string
	flag   string
}

var (
	unknownFlagRE  = regexp.MustCompile(`^unknown (?:shorthand )?flag: (?:'(\w)' in )?(-{1,2}[\w-]+)`)
	missingArgRE   = regexp.MustCompile(`^flag needs an argument: (?:'(\w)' in )?(-{1,2}[\w-]+)`)
	invalidValueRE = regexp.MustCompile(`^invalid argument ".*" for "([^"]+)" flag`)
)

func newFlagParseError(err error) flagParseError {
	msg := err.Error()
	switch {
	case unknownFlagRE.MatchString(msg):
		m := unknownFlagRE.FindStringSubmatch(msg)
		return flagParseError{err: err, reason: "Flag %s is missing.", flag: m[2]}
	case missingArgRE.MatchString(msg):
		m := missingArgRE.FindStringSubmatch(msg)
		return flagParseError{err: err, reason: "Flag %s needs an argument.", flag: m[2]}
	case invalidValueRE.MatchString(msg):
		m := invalidValueRE.FindStringSubmatch(msg)
		return flagParseError{err: err, reason: "Flag %s have an invalid argument.", flag: m[1]}
	default:
		return flagParseError{err: err, reason: "%s", flag: msg}
	}
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}
