package bridge

import (
	"context"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/frostctl/internal/auth"
	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type round1Request struct {
	Index      uint8    `json:"index"`
	MinSigners uint8    `json:"min_signers" binding:"required"`
	Identities []string `json:"identities" binding:"required"`
}

type round2Request struct {
	Index          uint8    `json:"index"`
	PublicPackages []string `json:"public_packages" binding:"required"`
	SecretPackage  string   `json:"secret_package" binding:"required"`
}

type round3Request struct {
	Self         string   `json:"self" binding:"required"`
	Participants []string `json:"participants" binding:"required"`
	Round1Public []string `json:"round1_public"`
	Round2Public []string `json:"round2_public"`
	Round2Secret string   `json:"round2_secret" binding:"required"`
	GSKShares    []string `json:"gsk_shares"`
}

type commitmentsRequest struct {
	Signers []string `json:"signers" binding:"required"`
	TxHash  string   `json:"tx_hash" binding:"required"`
}

type signRequest struct {
	PKRandomness   string `json:"pk_randomness" binding:"required"`
	SigningPackage string `json:"signing_package" binding:"required"`
	Nonces         string `json:"nonces" binding:"required"`
}

type blobRequest struct {
	Data string `json:"data" binding:"required"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.Started).String(),
			"bridge": s.Name,
			"write":  s.write,
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/version", s.handleVersion)
	v1.GET("/keys", s.handleKeys)

	d := v1.Group("/dkg")
	d.GET("/identity", s.handleIdentity)
	d.GET("/identities", s.handleIdentities)
	d.GET("/public-package", s.handlePublicPackage)
	d.GET("/keys", s.handleDkgKeys)

	if !s.write {
		return
	}
	w := v1.Group("")
	if s.token != "" {
		w.Use(auth.Require(auth.StaticToken{Token: s.token}))
	}
	w.POST("/dkg/round1", s.handleRound1)
	w.POST("/dkg/round2", s.handleRound2)
	w.POST("/dkg/round3", s.handleRound3)
	w.POST("/dkg/commitments", s.handleCommitments)
	w.POST("/dkg/nonces", s.handleNonces)
	w.POST("/dkg/sign", s.handleSign)
	w.POST("/dkg/backup", s.handleBackup)
	w.POST("/dkg/restore", s.handleRestore)
	w.POST("/review-tx", s.handleReviewTx)
}

func (s *Server) handleVersion(c *gin.Context) {
	var v dkg.Version
	err := s.exclusive(func() (err error) {
		v, err = s.dev.Version(c.Request.Context())
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version":   v.String(),
		"test_mode": v.TestMode,
		"locked":    v.Locked,
		"target_id": "0x" + strconv.FormatUint(uint64(v.TargetID), 16),
	})
}

func (s *Server) handleKeys(c *gin.Context) {
	keyType, err := dkg.ParseKeyType(c.DefaultQuery("type", "address"))
	if err != nil {
		writeError(c, badRequest("type: %v", err))
		return
	}
	path := c.DefaultQuery("path", "m/44'/1338'/0'")
	show := c.Query("show") == "true"
	var keys dkg.Keys
	err = s.exclusive(func() (err error) {
		keys, err = s.dev.Keys(c.Request.Context(), path, keyType, show)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, keysBody(keys))
}

func (s *Server) handleDkgKeys(c *gin.Context) {
	keyType, err := dkg.ParseKeyType(c.DefaultQuery("type", "address"))
	if err != nil {
		writeError(c, badRequest("type: %v", err))
		return
	}
	var keys dkg.Keys
	err = s.exclusive(func() (err error) {
		keys, err = s.dev.DkgKeys(c.Request.Context(), keyType)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, keysBody(keys))
}

func (s *Server) handleIdentity(c *gin.Context) {
	index, err := strconv.ParseUint(c.DefaultQuery("index", "0"), 10, 8)
	if err != nil {
		writeError(c, badRequest("index: %v", err))
		return
	}
	show := c.Query("show") == "true"
	var id dkg.Identity
	err = s.exclusive(func() (err error) {
		id, err = s.dev.Identity(c.Request.Context(), uint8(index), show)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id.String()})
}

func (s *Server) handleIdentities(c *gin.Context) {
	var ids []dkg.Identity
	err := s.exclusive(func() (err error) {
		ids, err = s.dev.Identities(c.Request.Context())
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	c.JSON(http.StatusOK, gin.H{"identities": out})
}

func (s *Server) handlePublicPackage(c *gin.Context) {
	s.blobResult(c, "public_package", func(c *gin.Context) ([]byte, error) {
		return s.dev.PublicPackage(c.Request.Context())
	})
}

func (s *Server) handleBackup(c *gin.Context) {
	s.blobResult(c, "encrypted_keys", func(c *gin.Context) ([]byte, error) {
		return s.dev.BackupKeys(c.Request.Context())
	})
}

func (s *Server) handleRound1(c *gin.Context) {
	var req round1Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	ids, err := dkg.ParseIdentities(req.Identities)
	if err != nil {
		writeError(c, err)
		return
	}
	var pkg dkg.RoundPackage
	err = s.exclusive(func() (err error) {
		pkg, err = s.dev.Round1(c.Request.Context(), req.Index, ids, req.MinSigners)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, packageBody(pkg))
}

func (s *Server) handleRound2(c *gin.Context) {
	var req round2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	public, err := dkg.ParseHexList(req.PublicPackages)
	if err != nil {
		writeError(c, err)
		return
	}
	secret, err := dkg.ParseHex(req.SecretPackage)
	if err != nil {
		writeError(c, err)
		return
	}
	var pkg dkg.RoundPackage
	err = s.exclusive(func() (err error) {
		pkg, err = s.dev.Round2(c.Request.Context(), req.Index, public, secret)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, packageBody(pkg))
}

func (s *Server) handleRound3(c *gin.Context) {
	var req round3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	var sent dkg.Round3Request
	err = s.exclusive(func() (err error) {
		sent, err = s.dev.Round3(c.Request.Context(), in)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "index": sent.Index, "origin": sent.Origin})
}

func (r round3Request) input() (dkg.Round3Input, error) {
	var in dkg.Round3Input
	var err error
	if in.Self, err = dkg.ParseIdentity(r.Self); err != nil {
		return in, err
	}
	if in.Participants, err = dkg.ParseIdentities(r.Participants); err != nil {
		return in, err
	}
	if in.Round1Public, err = dkg.ParseHexList(r.Round1Public); err != nil {
		return in, err
	}
	if in.Round2Public, err = dkg.ParseHexList(r.Round2Public); err != nil {
		return in, err
	}
	if in.Round2Secret, err = dkg.ParseHex(r.Round2Secret); err != nil {
		return in, err
	}
	in.GSKShares, err = dkg.ParseHexList(r.GSKShares)
	return in, err
}

func (s *Server) handleCommitments(c *gin.Context) {
	s.signerStep(c, "commitments", s.dev.Commitments)
}

func (s *Server) handleNonces(c *gin.Context) {
	s.signerStep(c, "nonces", s.dev.Nonces)
}

type signerFunc func(ctx context.Context, signers []dkg.Identity, txHash []byte) ([]byte, error)

func (s *Server) signerStep(c *gin.Context, key string, fn signerFunc) {
	var req commitmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	signers, err := dkg.ParseIdentities(req.Signers)
	if err != nil {
		writeError(c, err)
		return
	}
	hash, err := dkg.ParseHex(req.TxHash)
	if err != nil {
		writeError(c, err)
		return
	}
	s.blobResult(c, key, func(c *gin.Context) ([]byte, error) {
		return fn(c.Request.Context(), signers, hash)
	})
}

func (s *Server) handleSign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	parts, err := dkg.ParseHexList([]string{req.PKRandomness, req.SigningPackage, req.Nonces})
	if err != nil {
		writeError(c, err)
		return
	}
	s.blobResult(c, "signature", func(c *gin.Context) ([]byte, error) {
		return s.dev.DkgSign(c.Request.Context(), parts[0], parts[1], parts[2])
	})
}

func (s *Server) handleRestore(c *gin.Context) {
	var req blobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	blob, err := dkg.ParseHex(req.Data)
	if err != nil {
		writeError(c, err)
		return
	}
	err = s.exclusive(func() error {
		return s.dev.RestoreKeys(c.Request.Context(), blob)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReviewTx(c *gin.Context) {
	var req blobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	tx, err := dkg.ParseHex(req.Data)
	if err != nil {
		writeError(c, err)
		return
	}
	s.blobResult(c, "tx_hash", func(c *gin.Context) ([]byte, error) {
		return s.dev.ReviewTx(c.Request.Context(), tx)
	})
}

func (s *Server) blobResult(c *gin.Context, key string, fn func(c *gin.Context) ([]byte, error)) {
	var out []byte
	err := s.exclusive(func() (err error) {
		out, err = fn(c)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: hex.EncodeToString(out)})
}

func packageBody(pkg dkg.RoundPackage) gin.H {
	return gin.H{
		"secret_package": hex.EncodeToString(pkg.Secret),
		"public_package": hex.EncodeToString(pkg.Public),
	}
}

func keysBody(k dkg.Keys) gin.H {
	body := gin.H{"type": k.Type.String()}
	for name, v := range map[string][]byte{
		"public_address": k.PublicAddress,
		"view_key":       k.ViewKey,
		"ivk":            k.IVK,
		"ovk":            k.OVK,
		"ak":             k.AK,
		"nsk":            k.NSK,
	} {
		if len(v) > 0 {
			body[name] = hex.EncodeToString(v)
		}
	}
	return body
}
