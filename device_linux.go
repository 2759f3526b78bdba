package kms

import "github.com/BeatGlow/kms/drm"

func openCard(path string) (Device, error) {
	card, err := drm.Open(path)
	if err != nil {
		return nil, err
	}
	return card, nil
}

var _ Device = (*drm.Card)(nil)
