package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// TitleStyle is used for the pager title bar.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the scroll position indicator.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// FieldStyle renders message header field names.
var FieldStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ValueStyle renders message header field values.
var ValueStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// UnreadStyle marks messages that are still unseen.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// AttachmentStyle renders attachment listing lines.
var AttachmentStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// HelpStyle is used for keyboard shortcut hints and secondary notes.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SeparatorStyle renders rule lines between message sections.
var SeparatorStyle = lipgloss.NewStyle().
	Foreground(ColorSubtle)
