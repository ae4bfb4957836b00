// Package ui renders command lifecycle events as console messages.
//
// ConsoleCommandEventLogger is installed as the execshell event observer when
// the console log format is selected, so users see sentences such as
// "Fetching from origin in /path" instead of structured fields.
package ui
