package kms

import (
	"errors"
	"fmt"

	"github.com/BeatGlow/kms/drm"
)

// Enumerate returns the device-wide display resources. The device must be able
// to allocate dumb buffers and have at least one connector and one CRTC.
func Enumerate(dev Device) (*drm.Resources, error) {
	if v, err := dev.Capability(drm.CapDumbBuffer); err != nil {
		return nil, fmt.Errorf("%w: dumb buffer capability: %w", ErrResourceQuery, err)
	} else if v == 0 {
		return nil, fmt.Errorf("%w: driver has no dumb buffer support", ErrResourceQuery)
	}

	res, err := dev.Resources()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceQuery, err)
	}
	if len(res.Connectors) == 0 {
		return nil, fmt.Errorf("%w: no connectors", ErrResourceQuery)
	}
	if len(res.Crtcs) == 0 {
		return nil, fmt.Errorf("%w: no CRTCs", ErrResourceQuery)
	}
	return res, nil
}

// CrtcBinding is a CRTC paired with the connector it drives.
type CrtcBinding struct {
	CrtcID uint32

	// CrtcIndex is the position of CrtcID in [drm.Resources.Crtcs], which is
	// the bit tested in [drm.Encoder.PossibleCrtcs].
	CrtcIndex int

	ConnectorID uint32
	EncoderID   uint32
}

func (b CrtcBinding) String() string {
	return fmt.Sprintf("connector %d -> encoder %d -> crtc %d (index %d)",
		b.ConnectorID, b.EncoderID, b.CrtcID, b.CrtcIndex)
}

// SelectOutput picks the first connected connector in resource order, then the
// first CRTC in resource order that one of its encoders can drive, trying the
// encoders in the order the connector lists them.
//
// Connectors or encoders that fail to query are skipped.
func SelectOutput(dev Device, res *drm.Resources) (*drm.Connector, CrtcBinding, error) {
	conn, err := selectConnector(dev, res)
	if err != nil {
		return nil, CrtcBinding{}, err
	}
	binding, err := selectCrtc(dev, res, conn)
	if err != nil {
		return nil, CrtcBinding{}, err
	}
	return conn, binding, nil
}

func selectConnector(dev Device, res *drm.Resources) (*drm.Connector, error) {
	var errs []error
	for _, id := range res.Connectors {
		conn, err := dev.Connector(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if conn.Connection == drm.Connected {
			return conn, nil
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoConnectedOutput, err)
	}
	return nil, ErrNoConnectedOutput
}

func selectCrtc(dev Device, res *drm.Resources, conn *drm.Connector) (CrtcBinding, error) {
	for _, encoderID := range conn.Encoders {
		enc, err := dev.Encoder(encoderID)
		if err != nil {
			continue
		}
		for i, crtcID := range res.Crtcs {
			if i >= 32 {
				break
			}
			if enc.PossibleCrtcs&(1<<uint(i)) != 0 {
				return CrtcBinding{
					CrtcID:      crtcID,
					CrtcIndex:   i,
					ConnectorID: conn.ID,
					EncoderID:   enc.ID,
				}, nil
			}
		}
	}
	return CrtcBinding{}, fmt.Errorf("%w: connector %d", ErrNoCompatibleCrtc, conn.ID)
}
