// Package queue contains the email job queue: a durable RabbitMQ queue
// that decouples auth flows from SMTP delivery. The publisher side is
// used by the auth service; the worker side consumes jobs and hands them
// to the mailer with bounded retries.
package queue

// Job kinds routed by the worker.
const (
	JobSignupVerifyOTP      = "send-signup-verify-otp-email"
	JobRecoverOTP           = "send-account-recover-otp-email"
	JobPasswordResetSuccess = "send-password-reset-success-email"
)

// EmailJob is the wire format of one queued email. Kind selects the
// template; OTP fields are empty for notification-only jobs.
type EmailJob struct {
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	OTP        string `json:"otp,omitempty"`
	ExpiresMin int    `json:"expires_min,omitempty"`
}
