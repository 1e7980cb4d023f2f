// Package scheduler is the slot/meeting consistency engine: it keeps each
// calendar's slots non-overlapping, converts a FREE slot into a meeting
// atomically under concurrent attempts, and enforces ownership and
// visibility on every read and mutation. Transport and storage live
// elsewhere; the engine only sees an authenticated caller id and a Store.
package scheduler

import (
	"github.com/sirupsen/logrus"
)

type Service struct {
	store Store
	log   *logrus.Logger
}

func New(store Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}
