package client

import (
	"net/http"
)

//go:generate mockgen -destination mock/doer_mock.go -package mock github.com/hanfei1991/sendtask/client Doer

// Doer sends one HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
