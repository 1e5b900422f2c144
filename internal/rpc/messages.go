package rpc

// Prompt is the wire form of a prompt record.
type Prompt struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	UseCount  int64    `json:"useCount"`
	LastUsed  int64    `json:"lastUsed,omitempty"`
	IsActive  bool     `json:"isActive"`
	Locked    bool     `json:"locked"`
	SourceURL string   `json:"sourceUrl,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpLock   = "lock"
)

// BatchOp is one write of a CommitBatch call.
type BatchOp struct {
	Kind      string  `json:"kind"`
	ID        string  `json:"id"`
	Prompt    *Prompt `json:"prompt,omitempty"`
	Locked    bool    `json:"locked,omitempty"`
	UpdatedAt int64   `json:"updatedAt"`
}

const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeRemoved  = "removed"
)

// Change is one message of the Watch stream.
type Change struct {
	Kind   string  `json:"kind"`
	ID     string  `json:"id"`
	Prompt *Prompt `json:"prompt,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type LoginResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ListActiveRequest struct{}

type ListUpdatedSinceRequest struct {
	Since int64 `json:"since"`
}

type ListPromptsResponse struct {
	Prompts []Prompt `json:"prompts"`
}

type UpsertRequest struct {
	Prompt Prompt `json:"prompt"`
}

type UpsertResponse struct {
	// Applied is false when the server already held a newer version.
	Applied bool `json:"applied"`
}

type SoftDeleteRequest struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updatedAt"`
}

type SoftDeleteResponse struct{}

type CommitBatchRequest struct {
	Ops []BatchOp `json:"ops"`
}

type CommitBatchResponse struct {
	Applied int `json:"applied"`
}

type PurgeRequest struct {
	ID string `json:"id"`
}

type PurgeResponse struct{}

type WatchRequest struct{}

type GetMembershipRequest struct{}

type SetMembershipRequest struct {
	Tier string `json:"tier"`
}

type WatchMembershipRequest struct{}

type MembershipResponse struct {
	Tier string `json:"tier"`
}

type ExportRequest struct{}

type ExportResponse struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}
