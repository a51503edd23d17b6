package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// ConfirmationEmail renders the booking confirmation.  The QR image is
// referenced as cid:qrcode and must be attached with that ContentID.
func ConfirmationEmail(userName, movieTitle, verificationCode string, showTime time.Time, seats []string, amountCents int64) (subject, body string) {
	subject = fmt.Sprintf("Booking Confirmation : %s booked!", movieTitle)
	body = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
      <h2>Hi %s,</h2>
      <p>Your booking for <strong style="color: #F84565;">%s</strong> has been confirmed!</p>
      <p>
        <strong>Booking ID:</strong> %s<br>
        <strong>Show Date:</strong> %s<br>
        <strong>Time:</strong> %s<br>
        <strong>Seats:</strong> %s<br>
        <strong>Total Amount:</strong> $%.2f<br>
      </p>
      <div style="margin: 20px 0; padding: 15px; background-color: #f8f9fa; border-radius: 8px; text-align: center;">
        <h3 style="color: #F84565; margin-bottom: 10px;">Your Digital Ticket</h3>
        <p style="margin-bottom: 15px;">Show this QR code at the cinema for entry</p>
        <img src="cid:qrcode" alt="Booking QR Code" style="max-width: 250px; border: 2px solid #F84565; border-radius: 8px;" />
        <p style="margin-top: 10px; font-size: 12px; color: #666;">
          Verification Code: <strong>%s</strong>
        </p>
      </div>
      <p><strong>Important:</strong> Please arrive at least 15 minutes before the show time. Present this QR code or your verification code at the entrance.</p>
      <p>Thank you for choosing ShowZa! We hope you enjoy the movie.</p>
      <p>Best regards,<br>The ShowZa Team</p>
      </div>`,
		html.EscapeString(userName),
		html.EscapeString(movieTitle),
		verificationCode,
		showTime.Format("January 2, 2006"),
		showTime.Format("3:04 PM"),
		html.EscapeString(strings.Join(seats, ", ")),
		float64(amountCents)/100,
		verificationCode,
	)
	return subject, body
}

// ReminderEmail renders the show-starting-soon reminder.
func ReminderEmail(userName, movieTitle string, showTime time.Time) (subject, body string) {
	subject = fmt.Sprintf("Reminder: Your movie %s is starting soon!", movieTitle)
	body = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px;">
        <h2>Hi %s,</h2>
        <p>This is a friendly reminder that your movie <strong style="color: #F84565;">%s</strong> is starting soon!</p>
        <p><strong>Show Time:</strong> %s</p>
        <p>We hope you enjoy the show!</p>
        <p>Best regards,<br>The ShowZa Team</p>
        </div>`,
		html.EscapeString(userName),
		html.EscapeString(movieTitle),
		showTime.Format("3:04 PM"),
	)
	return subject, body
}

// NewShowEmail renders the new-show alert sent to every user.
func NewShowEmail(userName, movieTitle string) (subject, body string) {
	subject = fmt.Sprintf("New Show Alert: %s is now playing!", movieTitle)
	body = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px;">
      <h2>Hi %s,</h2>
      <p>We are excited to inform you that a new show for <strong style="color: #F84565;">%s</strong> has been added!</p>
      <p>Check it out now and book your tickets!</p>
      <p>Best regards,<br>The ShowZa Team</p>
      </div>`,
		html.EscapeString(userName),
		html.EscapeString(movieTitle),
	)
	return subject, body
}
