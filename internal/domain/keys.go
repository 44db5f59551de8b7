package domain

type CtxKey string

const (
	KeyRequestID CtxKey = "RequestID"
	KeyClientKey CtxKey = "ClientKey"
)
