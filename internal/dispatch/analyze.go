package dispatch

import (
	"context"
	"fmt"
	"strings"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

const maxFilesAnalyzed = 2

// resourceAnalyze summarizes up to two documents of a folder. Without an
// explicit name the stored folder context is used as-is, with no new lookup.
func (d *Dispatcher) resourceAnalyze(ctx context.Context, conversationID string, in domain.Intent, rawText string) string {
	var (
		folder   domain.Resource
		children []domain.Resource
	)
	if name := strings.TrimSpace(in.Resource); name != "" {
		res, reply, ok := d.resolveFolder(ctx, name)
		if !ok {
			return reply
		}
		folder = res
	} else {
		fc, ok := d.folderContext(ctx, conversationID)
		if !ok {
			return askFolder
		}
		folder = domain.Resource{ID: fc.FolderID, Name: fc.Name, MimeType: domain.FolderMimeType}
		children = fc.Children
	}

	if children == nil {
		var err error
		if children, err = d.listChildren(ctx, folder.ID); err != nil {
			d.logger.Warn("list children failed", "folder", folder.Name, "err", err)
			return driveFailed
		}
	}
	d.saveFolderContext(ctx, conversationID, folder, children)

	if len(children) == 0 {
		return fmt.Sprintf(folderEmpty, folder.Name)
	}

	// Without readable content the summary works from the listing alone.
	docs := d.readDocuments(ctx, children)

	sctx, cancel := context.WithTimeout(ctx, 3*d.callTimeout)
	defer cancel()
	summary, err := d.Summarizer.Generate(sctx, llm.Request{
		System: "Você é o Jarvis. Responda em português do Brasil, de forma objetiva.",
		Prompt: summaryPrompt(folder.Name, rawText, children, docs),
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		d.logger.Warn("summarization failed", "folder", folder.Name, "err", err)
		return summaryFailed
	}
	return fmt.Sprintf("📊 Análise de \"%s\":\n\n%s", folder.Name, strings.TrimSpace(summary))
}

// resolveFolder returns the folder, or the reply to send when it cannot be
// resolved.
func (d *Dispatcher) resolveFolder(ctx context.Context, name string) (domain.Resource, string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 3*d.callTimeout)
	defer cancel()
	res, found, err := d.Resolver.Resolve(ctx, name)
	if err != nil {
		d.logger.Warn("folder lookup failed", "query", name, "err", err)
		return domain.Resource{}, driveFailed, false
	}
	if !found {
		return domain.Resource{}, d.notFoundReply(name), false
	}
	return res, "", true
}

func (d *Dispatcher) notFoundReply(name string) string {
	reply := fmt.Sprintf(folderNotFound, name)
	if email := d.Files.ServiceAccountEmail(); email != "" {
		reply += " " + fmt.Sprintf(shareHint, email)
	}
	return reply
}

func (d *Dispatcher) folderContext(ctx context.Context, conversationID string) (domain.FolderContext, bool) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.Memory.GetFolderContext(ctx, conversationID)
}

func (d *Dispatcher) listChildren(ctx context.Context, folderID string) ([]domain.Resource, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	children, err := d.Files.ListChildren(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []domain.Resource{}
	}
	return children, nil
}

func (d *Dispatcher) saveFolderContext(ctx context.Context, conversationID string, folder domain.Resource, children []domain.Resource) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	err := d.Memory.SetFolderContext(ctx, conversationID, domain.FolderContext{
		FolderID: folder.ID,
		Name:     folder.Name,
		Children: children,
		At:       d.now().UTC(),
	})
	if err != nil {
		d.logger.Warn("failed to store folder context", "conversation_id", conversationID, "err", err)
	}
}

type document struct {
	name string
	text string
}

// readDocuments reads a bounded prefix from at most two non-folder children.
// Unreadable files are skipped.
func (d *Dispatcher) readDocuments(ctx context.Context, children []domain.Resource) []document {
	var docs []document
	for _, c := range children {
		if len(docs) == maxFilesAnalyzed {
			break
		}
		if c.IsFolder() {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, d.callTimeout)
		text, err := d.Files.ReadPrefix(rctx, c, d.readPrefixChars)
		cancel()
		if err != nil {
			d.logger.Warn("read file failed", "file", c.Name, "err", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			docs = append(docs, document{name: c.Name, text: truncateRunes(text, d.readPrefixChars)})
		}
	}
	return docs
}

func summaryPrompt(folder, request string, children []domain.Resource, docs []document) string {
	var listing strings.Builder
	for i, name := range (domain.FolderContext{Children: children}).ChildNames() {
		if i > 0 {
			listing.WriteByte('\n')
		}
		listing.WriteString("- " + name)
	}
	parts := []string{
		fmt.Sprintf("Pasta: %s", folder),
		fmt.Sprintf("Pedido do usuário: %s", strings.TrimSpace(request)),
		"Arquivos disponíveis:\n" + listing.String(),
		"Atenda ao pedido usando apenas as informações abaixo. Se o pedido for genérico, resuma o que há na pasta em tópicos e diga que está pronto para perguntas.",
	}
	if len(docs) == 0 {
		parts = append(parts, "Nenhum conteúdo pôde ser extraído; baseie-se nos nomes dos arquivos.")
	}
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("### %s\n%s", doc.name, doc.text))
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
