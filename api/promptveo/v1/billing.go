package promptveov1

type CreateCheckoutRequest struct {
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type CreateCheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type CreatePortalRequest struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type CreatePortalResponse struct {
	URL string `json:"url"`
}
