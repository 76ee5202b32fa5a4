package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/frostctl/internal/config"
	"github.com/danmuck/frostctl/internal/device"
	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Report the device application version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(func(d *device.Driver) error {
				v, err := d.Version(commandContext(cmd))
				if err != nil {
					return err
				}
				return a.print(map[string]any{
					"version":   v.String(),
					"test_mode": v.TestMode,
					"locked":    v.Locked,
					"target_id": fmt.Sprintf("0x%08x", v.TargetID),
				})
			})
		},
	}
}

func keysOutput(k dkg.Keys) map[string]string {
	out := map[string]string{"type": k.Type.String()}
	for name, v := range map[string][]byte{
		"public_address": k.PublicAddress,
		"view_key":       k.ViewKey,
		"ivk":            k.IVK,
		"ovk":            k.OVK,
		"ak":             k.AK,
		"nsk":            k.NSK,
	} {
		if len(v) > 0 {
			out[name] = hex.EncodeToString(v)
		}
	}
	return out
}

func newKeysCmd(a *app) *cobra.Command {
	var keyType string
	var show bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Retrieve single-key material for --path",
		RunE: func(cmd *cobra.Command, args []string) error {
			kt, err := dkg.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				k, err := d.Keys(commandContext(cmd), a.cfg.Path, kt, show)
				if err != nil {
					return err
				}
				return a.print(keysOutput(k))
			})
		},
	}
	cmd.Flags().StringVar(&keyType, "type", "address", "key type: address, view or proof")
	cmd.Flags().BoolVar(&show, "show", false, "display on the device for confirmation")
	return cmd
}

// readBlob takes a hex argument, or the hex contents of a file when the
// argument starts with @.
func readBlob(arg string) ([]byte, error) {
	raw := arg
	if strings.HasPrefix(arg, "@") {
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		raw = string(b)
	}
	return dkg.ParseHex(raw)
}

func newSignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <hex|@file>",
		Short: "Sign a blob with the single key at --path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(args[0])
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				sig, err := d.Sign(commandContext(cmd), a.cfg.Path, blob)
				if err != nil {
					return err
				}
				return a.print(map[string]string{"signature": hex.EncodeToString(sig)})
			})
		},
	}
}

func newReviewTxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review-tx <hex|@file>",
		Short: "Show an unsigned transaction on the device and return its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readBlob(args[0])
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				hash, err := d.ReviewTx(commandContext(cmd), tx)
				if err != nil {
					return err
				}
				return a.print(map[string]string{"tx_hash": hex.EncodeToString(hash)})
			})
		},
	}
}

// ceremonyFlags binds --ceremony and --save to a dkg subcommand.
type ceremonyFlags struct {
	path string
	save bool
}

func (f *ceremonyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "ceremony", "ceremony.toml", "ceremony TOML file")
	cmd.Flags().BoolVar(&f.save, "save", false, "write results back into the ceremony file")
}

func (f *ceremonyFlags) load() (config.Ceremony, error) {
	return config.LoadCeremony(f.path)
}

func (f *ceremonyFlags) store(c config.Ceremony) error {
	if !f.save {
		return nil
	}
	return config.SaveCeremony(f.path, c)
}

// placeAt sets list[index] = v, growing list to n entries.
func placeAt(list []string, n int, index uint8, v string) []string {
	if len(list) < n {
		grown := make([]string, n)
		copy(grown, list)
		list = grown
	}
	list[index] = v
	return list
}

func newDkgCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dkg",
		Short: "Distributed key generation and threshold signing steps",
	}
	cmd.AddCommand(
		newIdentityCmd(a),
		newIdentitiesCmd(a),
		newRound1Cmd(a),
		newRound2Cmd(a),
		newRound3Cmd(a),
		newSignerStepCmd(a, "commitments", "Produce signing commitments for tx_hash", (*device.Driver).Commitments),
		newSignerStepCmd(a, "nonces", "Produce signing nonces for tx_hash", (*device.Driver).Nonces),
		newDkgSignCmd(a),
		newDkgKeysCmd(a),
		newBlobCmd(a, "public-package", "Export the group public key package", "public_package", (*device.Driver).PublicPackage),
		newBlobCmd(a, "backup", "Export the encrypted ceremony keys", "encrypted_keys", (*device.Driver).BackupKeys),
		newRestoreCmd(a),
	)
	return cmd
}

func newIdentityCmd(a *app) *cobra.Command {
	var index uint8
	var show bool
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Read this participant's DKG identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(func(d *device.Driver) error {
				id, err := d.Identity(commandContext(cmd), index, show)
				if err != nil {
					return err
				}
				if cf.save {
					c, err := cf.load()
					if err != nil {
						return err
					}
					c.Self = id.String()
					if err := cf.store(c); err != nil {
						return err
					}
				}
				return a.print(map[string]string{"identity": id.String()})
			})
		},
	}
	cmd.Flags().Uint8Var(&index, "index", 0, "identity slot (paged generation)")
	cmd.Flags().BoolVar(&show, "show", false, "display on the device for confirmation")
	cf.bind(cmd)
	return cmd
}

func newIdentitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List the participants of the stored ceremony",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(func(d *device.Driver) error {
				ids, err := d.Identities(commandContext(cmd))
				if err != nil {
					return err
				}
				out := make([]string, len(ids))
				for i, id := range ids {
					out[i] = id.String()
				}
				return a.print(map[string][]string{"identities": out})
			})
		},
	}
}

func packageOutput(pkg dkg.RoundPackage) map[string]string {
	return map[string]string{
		"secret_package": hex.EncodeToString(pkg.Secret),
		"public_package": hex.EncodeToString(pkg.Public),
	}
}

func newRound1Cmd(a *app) *cobra.Command {
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   "round1",
		Short: "Start the ceremony among the configured participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.load()
			if err != nil {
				return err
			}
			ids, err := c.Identities()
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				pkg, err := d.Round1(commandContext(cmd), c.Index, ids, c.MinSigners)
				if err != nil {
					return err
				}
				c.Round1Secret = hex.EncodeToString(pkg.Secret)
				c.Round1Public = placeAt(c.Round1Public, len(ids), c.Index, hex.EncodeToString(pkg.Public))
				if err := cf.store(c); err != nil {
					return err
				}
				return a.print(packageOutput(pkg))
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func newRound2Cmd(a *app) *cobra.Command {
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   "round2",
		Short: "Run round 2 over every participant's round 1 public package",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.load()
			if err != nil {
				return err
			}
			public, secret, err := c.Round2Packages()
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				pkg, err := d.Round2(commandContext(cmd), c.Index, public, secret)
				if err != nil {
					return err
				}
				c.Round2Secret = hex.EncodeToString(pkg.Secret)
				if err := cf.store(c); err != nil {
					return err
				}
				return a.print(packageOutput(pkg))
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func newRound3Cmd(a *app) *cobra.Command {
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   "round3",
		Short: "Finish the ceremony; the device keeps the key package",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.load()
			if err != nil {
				return err
			}
			in, err := c.Round3Input()
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				req, err := d.Round3(commandContext(cmd), in)
				if err != nil {
					return err
				}
				return a.print(map[string]any{"status": "ok", "index": req.Index, "origin": req.Origin})
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func newSignerStepCmd(a *app, use, short string, step func(*device.Driver, context.Context, []dkg.Identity, []byte) ([]byte, error)) *cobra.Command {
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.load()
			if err != nil {
				return err
			}
			signers, err := c.SignerIdentities()
			if err != nil {
				return err
			}
			hash, err := c.TxHashBytes()
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				out, err := step(d, commandContext(cmd), signers, hash)
				if err != nil {
					return err
				}
				if use == "nonces" {
					c.Nonces = hex.EncodeToString(out)
					if err := cf.store(c); err != nil {
						return err
					}
				}
				return a.print(map[string]string{use: hex.EncodeToString(out)})
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func newDkgSignCmd(a *app) *cobra.Command {
	var cf ceremonyFlags
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Produce this participant's signature share",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.load()
			if err != nil {
				return err
			}
			pk, pkg, nonces, err := c.SigningInputs()
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				sig, err := d.DkgSign(commandContext(cmd), pk, pkg, nonces)
				if err != nil {
					return err
				}
				return a.print(map[string]string{"signature": hex.EncodeToString(sig)})
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func newDkgKeysCmd(a *app) *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Retrieve key material derived from the group key",
		RunE: func(cmd *cobra.Command, args []string) error {
			kt, err := dkg.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				k, err := d.DkgKeys(commandContext(cmd), kt)
				if err != nil {
					return err
				}
				return a.print(keysOutput(k))
			})
		},
	}
	cmd.Flags().StringVar(&keyType, "type", "address", "key type: address, view or proof")
	return cmd
}

func newBlobCmd(a *app, use, short, key string, fetch func(*device.Driver, context.Context) ([]byte, error)) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(func(d *device.Driver) error {
				blob, err := fetch(d, commandContext(cmd))
				if err != nil {
					return err
				}
				encoded := hex.EncodeToString(blob)
				if outPath != "" {
					return os.WriteFile(outPath, []byte(encoded+"\n"), 0o600)
				}
				return a.print(map[string]string{key: encoded})
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write hex to a file instead of stdout")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <hex|@file>",
		Short: "Load an encrypted key backup into the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(args[0])
			if err != nil {
				return err
			}
			return a.withDriver(func(d *device.Driver) error {
				if err := d.RestoreKeys(commandContext(cmd), blob); err != nil {
					return err
				}
				return a.print(map[string]string{"status": "ok"})
			})
		},
	}
}
