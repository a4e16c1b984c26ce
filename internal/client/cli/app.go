// Package cli implements the Documo command line client: uploading documents
// through a share link and viewing decrypted documents as an operator.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/documo/documo/internal/client/api"
	"github.com/documo/documo/internal/client/config"
	"github.com/documo/documo/internal/client/upload"
	"github.com/documo/documo/internal/client/validation"
	"github.com/documo/documo/internal/client/view"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/cryptox"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type App struct {
	cfg    *config.Config
	client *api.Client
	out    io.Writer
	in     *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	return &App{
		cfg:    cfg,
		client: api.NewClient(cfg.ServerAddr, cfg.RequestTimeout),
		out:    os.Stdout,
		in:     bufio.NewReader(os.Stdin),
	}, nil
}

// Run dispatches on the first positional argument.
func (a *App) Run(ctx context.Context) error {
	args := positionalArgs(os.Args[1:])
	if len(args) == 0 {
		a.usage()
		return nil
	}

	switch args[0] {
	case "upload":
		if len(args) != 4 {
			a.usage()
			return fmt.Errorf("upload needs a share token, a type and a file: %w", common.ErrValidation)
		}
		return a.runUpload(ctx, args[1], args[2], args[3])
	case "view":
		if len(args) != 3 {
			a.usage()
			return fmt.Errorf("view needs a request id and a document id: %w", common.ErrValidation)
		}
		return a.runView(ctx, args[1], args[2])
	default:
		a.usage()
		return fmt.Errorf("unknown command %q: %w", args[0], common.ErrValidation)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "usage:")
	fmt.Fprintln(a.out, "  documo-client upload <share-token> <type-id> <file>")
	fmt.Fprintln(a.out, "  documo-client view <request-id> <document-id>")
}

func (a *App) runUpload(ctx context.Context, shareToken, typeID, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	req, err := a.client.ResolveShare(ctx, shareToken)
	if err != nil {
		return fmt.Errorf("resolving share link: %w", err)
	}

	masterKey, err := a.promptMasterKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(masterKey)

	uploader := upload.NewUploader(a.client, masterKey)
	doc, err := uploader.Upload(ctx, upload.Input{
		RequestID: req.ID,
		TypeID:    typeID,
		File:      fileCandidate(path, content),
		OnProgress: func(p upload.Progress) {
			fmt.Fprintf(a.out, "%s %d%%\n", p.Stage, p.Percent)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uploaded %s as document %s\n", filepath.Base(path), doc.ID)
	return nil
}

func (a *App) runView(ctx context.Context, requestID, documentID string) error {
	operatorID, err := a.promptLine("Operator ID")
	if err != nil {
		return err
	}
	secret, err := a.promptSecret("Enter deployment secret: ")
	if err != nil {
		return err
	}
	if err := a.client.IssueToken(ctx, operatorID, string(secret)); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	common.WipeByteArray(secret)

	req, err := a.client.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("loading request: %w", err)
	}

	var doc *api.Document
	for i := range req.Documents {
		if req.Documents[i].ID == documentID {
			doc = &req.Documents[i]
			break
		}
	}
	if doc == nil {
		return fmt.Errorf("document %s not in request %s: %w", documentID, requestID, common.ErrNotFound)
	}

	masterKey, err := a.promptMasterKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(masterKey)

	session := view.NewSession(a.client, masterKey, *doc)
	if err := session.Decrypt(ctx); err != nil {
		return err
	}

	path, _ := session.ObjectPath()
	fmt.Fprintf(a.out, "decrypted to %s (%s)\n", path, doc.MimeType)
	fmt.Fprintln(a.out, "press Enter to revoke the view")
	_, _ = a.in.ReadString('\n')

	return session.Revoke()
}

func (a *App) promptMasterKey() ([]byte, error) {
	passphrase, err := a.promptSecret("Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(passphrase)
	return cryptox.DeriveMasterKey(passphrase, []byte(a.cfg.MasterKeySalt)), nil
}

func (a *App) promptSecret(prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(a.out, prompt); err != nil {
		return nil, err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func (a *App) promptLine(prompt string) (string, error) {
	if _, err := fmt.Fprint(a.out, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// fileCandidate builds the validation candidate from a file on disk, deriving
// the MIME type from the extension.
func fileCandidate(path string, content []byte) validation.Candidate {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return validation.Candidate{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     int64(len(content)),
		Content:  content,
	}
}

// positionalArgs strips flags (and their values) from args, leaving the
// command words. Both "-a value" and "-a=value" forms are recognized.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
