// Package health carries structured errors through livediff: errors hold slog-style key/value attributes, can be logged and returned in one line, and can carry a
// separate message meant for the person at the terminal.
package health
