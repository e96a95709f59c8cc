package output

import (
	"fmt"
	"io"
)

// NoticeKind classifies a user-facing message.
type NoticeKind string

const (
	Success NoticeKind = "success"
	Warning NoticeKind = "warning"
	Error   NoticeKind = "error"
	Info    NoticeKind = "info"
)

// Notice is a short message shown after an operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Noticef builds a Notice.
func Noticef(kind NoticeKind, format string, args ...any) Notice {
	return Notice{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FormatNotice writes n. Errors and warnings are prefixed with their kind.
func FormatNotice(w io.Writer, n Notice) {
	switch n.Kind {
	case Error, Warning:
		fmt.Fprintf(w, "%s: %s\n", n.Kind, n.Message)
	default:
		fmt.Fprintln(w, n.Message)
	}
}
