package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"xscraper/pkg/config"
	"xscraper/pkg/pagination"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("xscraper").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// Notifier handles cross-platform notifications
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a new Notifier based on the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender}
}

// NewNotifierWithSender is used when the platform sender must be replaced.
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// NewNotifierFromConfig returns a platform notifier for "desktop" and a
// console-only notifier for "terminal".
func NewNotifierFromConfig(cfg config.NotificationConfig) *Notifier {
	if cfg.NotificationType == "desktop" {
		return NewNotifier()
	}
	return &Notifier{}
}

// SendNotification sends a desktop notification and prints to console
func (n *Notifier) SendNotification(title, message string) {
	fmt.Printf("\n%s: %s\n", Cyan(title), Yellow(message))

	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Printf("\n%s: %s\n", Red(title), Red(message))

	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Printf("\n%s: %s\n", Green(title), Green(message))

	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// ScrapeNotifications turns engine events and run outcomes into
// notifications according to the notification config.
type ScrapeNotifications struct {
	pagination.BaseObserver

	notifier *Notifier
	cfg      config.NotificationConfig
}

// NewScrapeNotifications wires n to cfg.
func NewScrapeNotifications(n *Notifier, cfg config.NotificationConfig) *ScrapeNotifications {
	return &ScrapeNotifications{notifier: n, cfg: cfg}
}

func (s *ScrapeNotifications) OnLongPause(pause time.Duration, collected int) {
	if !s.cfg.Enabled || !s.cfg.OnLongPause {
		return
	}
	s.notifier.SendNotification("Scrape paused",
		fmt.Sprintf("No new posts at %d collected, resuming in %s", collected, formatDuration(pause)))
}

// Completed reports a finished run.
func (s *ScrapeNotifications) Completed(query string, written int) {
	if !s.cfg.Enabled || !s.cfg.OnComplete {
		return
	}
	s.notifier.SendSuccess("Scrape complete", fmt.Sprintf("%d posts saved for %s", written, query))
}

// Failed reports a run that ended in error.
func (s *ScrapeNotifications) Failed(query string, err error) {
	if !s.cfg.Enabled || !s.cfg.OnError {
		return
	}
	s.notifier.SendError("Scrape failed", fmt.Sprintf("%s: %v", query, err))
}
