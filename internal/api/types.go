// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import "time"

// =============================================================================
// ROLES AND STATUSES
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FactCheckStatus is the verification verdict attached to assistant messages.
type FactCheckStatus string

const (
	FactCheckNone      FactCheckStatus = ""
	FactCheckPending   FactCheckStatus = "pending"
	FactCheckApproved  FactCheckStatus = "approved"
	FactCheckCorrected FactCheckStatus = "corrected"
	FactCheckFlagged   FactCheckStatus = "flagged"
)

// =============================================================================
// SESSION AND MESSAGE TYPES
// =============================================================================

// ChatSession mirrors the backend's session resource. The backend owns it;
// the client never fabricates fields beyond optimistic placeholders.
type ChatSession struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Title              string    `json:"title"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	PrimaryTopic       string    `json:"primary_topic,omitempty"`
	LanguagePreference string    `json:"language_preference"`
	MessageCount       int       `json:"message_count"`
	TotalTokensUsed    int       `json:"total_tokens_used"`
	SatisfactionRating *int      `json:"satisfaction_rating,omitempty"`
}

// ChatMessage mirrors the backend's message resource. Immutable once the
// server has persisted it.
type ChatMessage struct {
	ID              int64           `json:"id"`
	SessionID       string          `json:"session_id"`
	Role            Role            `json:"role"`
	Content         string          `json:"content"`
	CreatedAt       time.Time       `json:"created_at"`
	TokensUsed      int             `json:"tokens_used"`
	ProcessingTime  float64         `json:"processing_time"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	DetectedTopic   string          `json:"detected_topic,omitempty"`
	ExpertConsulted string          `json:"expert_consulted,omitempty"`
	ToolsUsed       []string        `json:"tools_used,omitempty"`
	FactCheckStatus FactCheckStatus `json:"fact_check_status,omitempty"`
	AccuracyScore   *float64        `json:"accuracy_score,omitempty"`
}

// =============================================================================
// REQUEST / RESPONSE SHAPES
// =============================================================================

// CreateSessionRequest creates a new chat session.
type CreateSessionRequest struct {
	Title              string `json:"title,omitempty"`
	LanguagePreference string `json:"language_preference,omitempty"`
}

// UpdateSessionRequest patches a session. Nil fields are left untouched.
type UpdateSessionRequest struct {
	Title              *string `json:"title,omitempty"`
	IsActive           *bool   `json:"is_active,omitempty"`
	SatisfactionRating *int    `json:"satisfaction_rating,omitempty"`
	LanguagePreference *string `json:"language_preference,omitempty"`
}

// SendMessageRequest posts one user message to the non-streaming endpoint.
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// SessionList is the paginated list response.
type SessionList struct {
	Sessions []ChatSession `json:"sessions"`
	Total    int           `json:"total"`
	Skip     int           `json:"skip"`
	Limit    int           `json:"limit"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginRequest authenticates a user.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Page holds pagination parameters for list endpoints.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage is the page used when the caller passes a zero Page.
var DefaultPage = Page{Skip: 0, Limit: 50}
