package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// displayDate renders 2025-06-14 as "Saturday, June 14, 2025". Unparseable
// input is returned unchanged.
func displayDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2, 2006")
}

func bookingDetails(b BookingEmail) (string, string) {
	e := html.EscapeString
	var h, t strings.Builder

	fmt.Fprintf(&h, `<p><strong>Service:</strong> %s</p>
			<p><strong>Date:</strong> %s</p>
			<p><strong>Time:</strong> %s</p>
			<p><strong>Phone:</strong> %s</p>`,
		e(b.ServiceName), e(displayDate(b.Date)), e(b.Time), e(b.Phone))
	if b.Notes != "" {
		fmt.Fprintf(&h, "\n\t\t\t<p><strong>Notes:</strong> %s</p>", e(b.Notes))
	}

	fmt.Fprintf(&t, "Service: %s\nDate: %s\nTime: %s\nPhone: %s\n",
		b.ServiceName, displayDate(b.Date), b.Time, b.Phone)
	if b.Notes != "" {
		fmt.Fprintf(&t, "Notes: %s\n", b.Notes)
	}
	return h.String(), t.String()
}

func bookingConfirmation(b BookingEmail) Message {
	detailsHTML, detailsText := bookingDetails(b)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #b49b82;">Booking Confirmation</h2>
		<p>Dear %s,</p>
		<p>Thank you for booking with PaproMakeovers! We have received your appointment request.</p>
		<div style="background-color: #faf8f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
			<h3 style="color: #4a4037; margin-top: 0;">Appointment Details</h3>
			%s
		</div>
		<p>We look forward to seeing you! If you need to reschedule or have any questions, please contact us.</p>
		<p style="color: #666; font-size: 12px; margin-top: 30px;">This is an automated confirmation email from PaproMakeovers.</p>
		</div>
	`, html.EscapeString(b.Name), detailsHTML)

	text := fmt.Sprintf("Dear %s,\n\nThank you for booking with PaproMakeovers! We have received your appointment request.\n\nAPPOINTMENT DETAILS\n%s\nWe look forward to seeing you! If you need to reschedule or have any questions, please contact us.\n\nThis is an automated confirmation email from PaproMakeovers.",
		b.Name, detailsText)

	return Message{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Booking Confirmation - " + b.ServiceName,
		Text:    text,
		HTML:    body,
	}
}

func bookingStatus(b BookingEmail, status string) (Message, error) {
	var subject, headline, lead string
	switch status {
	case "confirmed":
		subject = "Appointment Confirmed - " + b.ServiceName
		headline = "Your appointment is confirmed"
		lead = "Great news! Your appointment with PaproMakeovers has been confirmed."
	case "cancelled":
		subject = "Appointment Cancelled - " + b.ServiceName
		headline = "Your appointment was cancelled"
		lead = "Your appointment with PaproMakeovers has been cancelled. Please contact us or book another time that suits you."
	default:
		return Message{}, fmt.Errorf("no email template for booking status %q", status)
	}

	detailsHTML, detailsText := bookingDetails(b)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #b49b82;">%s</h2>
		<p>Dear %s,</p>
		<p>%s</p>
		<div style="background-color: #faf8f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
			%s
		</div>
		<p style="color: #666; font-size: 12px; margin-top: 30px;">This is an automated email from PaproMakeovers.</p>
		</div>
	`, headline, html.EscapeString(b.Name), lead, detailsHTML)

	text := fmt.Sprintf("Dear %s,\n\n%s\n\n%s\nThis is an automated email from PaproMakeovers.", b.Name, lead, detailsText)

	return Message{To: b.Email, ToName: b.Name, Subject: subject, Text: text, HTML: body}, nil
}

func passwordReset(to, resetURL string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	u := html.EscapeString(resetURL)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px;">
			<h1 style="color: #b49b82; margin-bottom: 10px;">PaproMakeovers</h1>
			<h2 style="color: #4a4037; font-weight: normal;">Password Reset Request</h2>
		</div>
		<div style="background-color: #faf8f5; padding: 25px; border-radius: 10px; margin-bottom: 25px;">
			<p>Hello,</p>
			<p>You requested a password reset for your PaproMakeovers admin account.</p>
			<p>Click the button below to reset your password. This link will expire in %d minutes for security.</p>
			<p style="text-align: center;"><a href="%s" style="background: #b49b82; color: white; padding: 12px 30px; text-decoration: none; border-radius: 25px; font-weight: bold;">Reset Password</a></p>
			<p style="font-size: 14px;">If the button doesn't work, copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 13px;">%s</p>
		</div>
		<p style="font-size: 13px;"><strong>Security Notice:</strong></p>
		<ul style="font-size: 13px;">
			<li>This link expires in %d minutes</li>
			<li>If you didn't request this reset, ignore this email</li>
			<li>Never share this link with anyone</li>
		</ul>
		<p style="text-align: center; font-size: 12px;">PaproMakeovers Admin Portal<br>This is an automated security email.</p>
		</div>
	`, minutes, u, u, minutes)

	text := fmt.Sprintf("PaproMakeovers - Password Reset Request\n\nHello,\n\nYou requested a password reset for your PaproMakeovers admin account.\n\nTo reset your password, visit this link (expires in %d minutes):\n%s\n\nSecurity Notice:\n- This link expires in %d minutes\n- If you didn't request this reset, ignore this email\n- Never share this link with anyone\n\nPaproMakeovers Admin Portal\nThis is an automated security email.",
		minutes, resetURL, minutes)

	return Message{
		To:      to,
		Subject: "PaproMakeovers Admin - Password Reset Request",
		Text:    text,
		HTML:    body,
	}
}
