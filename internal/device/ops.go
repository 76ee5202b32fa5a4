package device

import (
	"context"

	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/danmuck/frostctl/internal/protocol/chunk"
)

func showFlag(show bool) byte {
	if show {
		return p1ShowOnDevice
	}
	return p1OnlyRetrieve
}

// Version reports the application version.
func (d *Driver) Version(ctx context.Context) (dkg.Version, error) {
	data, err := d.call(ctx, OpVersion, 0, 0, nil)
	if err != nil {
		return dkg.Version{}, err
	}
	return dkg.DecodeVersion(data)
}

// Keys retrieves single-key material for path, optionally asking the
// device to display it for confirmation first.
func (d *Driver) Keys(ctx context.Context, path string, keyType dkg.KeyType, show bool) (dkg.Keys, error) {
	serialized, err := chunk.SerializePath(path, d.gen.PathLengths)
	if err != nil {
		return dkg.Keys{}, err
	}
	data, err := d.call(ctx, OpKeys, showFlag(show), byte(keyType), serialized)
	if err != nil {
		return dkg.Keys{}, err
	}
	return dkg.DecodeKeys(keyType, data)
}

// Sign signs blob with the single key at path.
func (d *Driver) Sign(ctx context.Context, path string, blob []byte) ([]byte, error) {
	serialized, err := chunk.SerializePath(path, d.gen.PathLengths)
	if err != nil {
		return nil, err
	}
	data, err := d.submit(ctx, OpSign, serialized, blob)
	if err != nil {
		return nil, err
	}
	return dkg.DecodeSignature(data)
}

// Identity returns the device's DKG identity. Indexed generations hold
// several identity slots; index is ignored otherwise.
func (d *Driver) Identity(ctx context.Context, index uint8, show bool) (dkg.Identity, error) {
	var (
		data []byte
		err  error
	)
	if d.gen.Indexed {
		data, err = d.call(ctx, OpIdentity, showFlag(show), P2Default, dkg.EncodeIdentityRequest(index))
	} else {
		data, err = d.call(ctx, OpIdentity, p1OnlyRetrieve, P2Default, nil)
	}
	if err != nil {
		return nil, err
	}
	return dkg.DecodeIdentity(data)
}

// Identities returns the participant identities of the stored ceremony.
func (d *Driver) Identities(ctx context.Context) ([]dkg.Identity, error) {
	data, err := d.call(ctx, OpIdentities, 0, P2Default, nil)
	if err != nil {
		return nil, err
	}
	return dkg.DecodeIdentities(data)
}

// Round1 starts a ceremony among identities with the given threshold.
func (d *Driver) Round1(ctx context.Context, index uint8, identities []dkg.Identity, minSigners uint8) (dkg.RoundPackage, error) {
	var (
		payload []byte
		err     error
	)
	if d.gen.Indexed {
		payload, err = dkg.EncodeRound1(index, identities, minSigners)
	} else {
		payload, err = dkg.EncodeLegacyRound1(identities, minSigners)
	}
	if err != nil {
		return dkg.RoundPackage{}, err
	}
	data, err := d.submit(ctx, OpRound1, d.context, payload)
	if err != nil {
		return dkg.RoundPackage{}, err
	}
	return dkg.DecodeRound1(data)
}

// Round2 feeds the other participants' round 1 public packages and this
// participant's round 1 secret package.
func (d *Driver) Round2(ctx context.Context, index uint8, publicPackages [][]byte, secretPackage []byte) (dkg.RoundPackage, error) {
	payload, err := dkg.EncodeRound2(index, publicPackages, secretPackage)
	if err != nil {
		return dkg.RoundPackage{}, err
	}
	data, err := d.submit(ctx, OpRound2, d.context, payload)
	if err != nil {
		return dkg.RoundPackage{}, err
	}
	return dkg.DecodeRound2(data)
}

// Round3 finishes the ceremony. The device keeps the resulting key
// package; nothing is returned on success.
func (d *Driver) Round3(ctx context.Context, in dkg.Round3Input) (dkg.Round3Request, error) {
	req, err := dkg.MinimizeRound3(in)
	if err != nil {
		return dkg.Round3Request{}, err
	}
	payload, err := dkg.EncodeRound3Min(req)
	if err != nil {
		return dkg.Round3Request{}, err
	}
	if _, err := d.submit(ctx, OpRound3, d.context, payload); err != nil {
		return dkg.Round3Request{}, err
	}
	return req, nil
}

// Commitments returns signing commitments for txHash among signers.
func (d *Driver) Commitments(ctx context.Context, signers []dkg.Identity, txHash []byte) ([]byte, error) {
	payload, err := dkg.EncodeCommitmentsRequest(signers, txHash)
	if err != nil {
		return nil, err
	}
	return d.submit(ctx, OpCommitments, d.context, payload)
}

// Nonces returns signing nonces for txHash among signers.
func (d *Driver) Nonces(ctx context.Context, signers []dkg.Identity, txHash []byte) ([]byte, error) {
	payload, err := dkg.EncodeCommitmentsRequest(signers, txHash)
	if err != nil {
		return nil, err
	}
	return d.submit(ctx, OpNonces, d.context, payload)
}

// DkgSign produces this participant's signature share.
func (d *Driver) DkgSign(ctx context.Context, pkRandomness, signingPackage, nonces []byte) ([]byte, error) {
	payload, err := dkg.EncodeSignRequest(pkRandomness, signingPackage, nonces)
	if err != nil {
		return nil, err
	}
	data, err := d.submit(ctx, OpDkgSign, d.context, payload)
	if err != nil {
		return nil, err
	}
	return dkg.DecodeSignature(data)
}

// DkgKeys retrieves key material derived from the ceremony's group key.
func (d *Driver) DkgKeys(ctx context.Context, keyType dkg.KeyType) (dkg.Keys, error) {
	data, err := d.call(ctx, OpDkgKeys, 0, byte(keyType), nil)
	if err != nil {
		return dkg.Keys{}, err
	}
	return dkg.DecodeKeys(keyType, data)
}

// PublicPackage returns the ceremony's public key package.
func (d *Driver) PublicPackage(ctx context.Context) ([]byte, error) {
	return d.call(ctx, OpPublicPackage, 0, P2Default, nil)
}

// BackupKeys returns the ceremony key material encrypted by the device.
func (d *Driver) BackupKeys(ctx context.Context) ([]byte, error) {
	return d.call(ctx, OpBackupKeys, 0, P2Default, nil)
}

// RestoreKeys loads a backup produced by BackupKeys.
func (d *Driver) RestoreKeys(ctx context.Context, encryptedKeys []byte) error {
	payload, err := dkg.EncodeRestoreRequest(encryptedKeys)
	if err != nil {
		return err
	}
	_, err = d.submit(ctx, OpRestoreKeys, d.context, payload)
	return err
}

// ReviewTx shows tx on the device for approval and returns its hash.
func (d *Driver) ReviewTx(ctx context.Context, tx []byte) ([]byte, error) {
	payload, err := dkg.EncodeReviewRequest(tx)
	if err != nil {
		return nil, err
	}
	data, err := d.submit(ctx, OpReviewTx, d.context, payload)
	if err != nil {
		return nil, err
	}
	return dkg.DecodeTxHash(data)
}
