//go:build !linux

package kms

import "github.com/BeatGlow/kms/drm"

func openCard(_ string) (Device, error) {
	return nil, drm.ErrNotSupported
}
