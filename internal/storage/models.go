package storage

import "time"

// Message roles. The conversation log alternates between the two.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// User is a student profile.
// PastCourses maps canonical course codes to the grade received.
type User struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	Grade         string            `json:"grade"`
	Concentration string            `json:"concentration"`
	Certificates  []string          `json:"certificates"`
	PastCourses   map[string]string `json:"past_courses"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Chat is one conversation between a user and the advisor.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseEmbedding is a stored vector for one course.
type CourseEmbedding struct {
	CourseCode string
	ModelID    string
	SourceText string
	Vector     []float32
	UpdatedAt  time.Time
}
