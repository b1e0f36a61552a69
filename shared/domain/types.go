package domain

type (
	UserId   = string
	ThreadId = string
)
