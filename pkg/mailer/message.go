package mailer

import (
	"fmt"
	"html"
	"strings"
)

func subjectFor(d Delivery) string {
	return fmt.Sprintf("Time Capsule Message from %s", d.SenderName)
}

func textBody(d Delivery) string {
	var b strings.Builder
	b.WriteString("Hello!\n\n")
	fmt.Fprintf(&b, "You have received a Time Capsule message from %s.\n\n", d.SenderName)
	fmt.Fprintf(&b, "Written on: %s\n", d.WrittenAt.Format("Mon Jan 2 2006"))
	fmt.Fprintf(&b, "Delivered on: %s\n\n", d.UnlockAt.Format("Mon Jan 2 2006"))
	b.WriteString("--- MESSAGE ---\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n--- END ---\n\n")
	fmt.Fprintf(&b, "This message was scheduled to be delivered on %s.\n\n", d.UnlockAt.Format("Mon Jan 2 2006"))
	b.WriteString("Best regards,\nTime Capsule Team")
	return b.String()
}

func htmlBody(d Delivery) string {
	message := strings.ReplaceAll(html.EscapeString(d.Message), "\n", "<br/>")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; background-color: #f5f5f5; font-family: Arial, sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" align="center" style="background-color: #ffffff; border-radius: 8px;">
    <tr>
      <td style="padding: 30px;">
        <h1 style="color: #4F46E5; margin: 0 0 20px 0; font-size: 24px;">Time Capsule Message</h1>
        <p style="color: #666; font-size: 16px; line-height: 1.5;">
          Hello! You have received a special message from <strong>%s</strong>.
        </p>
        <div style="background-color: #F9FAFB; border-left: 4px solid #4F46E5; padding: 20px; margin: 20px 0; border-radius: 4px;">
          <p style="color: #374151; font-size: 16px; line-height: 1.6; margin: 0;">%s</p>
        </div>
        <p style="margin: 0; color: #6B7280; font-size: 14px;">
          <strong>Written on:</strong> %s<br/>
          <strong>Delivered on:</strong> %s
        </p>
        <p style="color: #9CA3AF; font-size: 12px; margin: 20px 0 0 0; text-align: center;">
          This message was scheduled for delivery via Time Capsule
        </p>
      </td>
    </tr>
  </table>
</body>
</html>`,
		html.EscapeString(d.SenderName),
		message,
		d.WrittenAt.Format("Mon Jan 2 2006"),
		d.UnlockAt.Format("Mon Jan 2 2006"))
}
