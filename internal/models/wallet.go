package models

type WalletLoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature"`
}

type WalletSession struct {
	Wallet    string `json:"wallet"`
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type Quote struct {
	Token        string `json:"token"`
	Side         string `json:"side"`
	AmountIn     string `json:"amountIn"`
	AmountOut    string `json:"amountOut"`
	OGReserve    string `json:"ogReserve"`
	TokenReserve string `json:"tokenReserve"`
	FeeBps       int64  `json:"feeBps"`
}
