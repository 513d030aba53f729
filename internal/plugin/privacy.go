package plugin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
)

// privacyPlugin rewrites external asset references (scripts, styles,
// images) in rendered pages to site-local mirror paths and records what
// must be mirrored in assets/external/manifest.json. Assets are not
// fetched at build time; the manifest drives an out-of-band mirror step.
type privacyPlugin struct {
	assetsBase string
	required   map[string]string // original URL -> local path
}

type privacyOptions struct {
	AssetsBase string `yaml:"assets_base"`
}

func newPrivacy(entry *config.OptionEntry, _ *config.Config) (Plugin, error) {
	var opts privacyOptions
	if err := entry.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	if opts.AssetsBase == "" {
		opts.AssetsBase = "assets/external"
	}
	return &privacyPlugin{assetsBase: opts.AssetsBase, required: map[string]string{}}, nil
}

func (p *privacyPlugin) Name() string { return "privacy" }

// assetAttrs maps tags whose URL attribute may reference an external asset.
var assetAttrs = map[string]string{
	"img":    "src",
	"script": "src",
	"link":   "href",
	"source": "src",
}

func (p *privacyPlugin) ProcessPage(page *render.Page) error {
	doc, err := html.Parse(strings.NewReader(string(page.HTML)))
	if err != nil {
		return fmt.Errorf("parse rendered %s: %w", page.SourcePath, err)
	}

	changed := false
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := assetAttrs[n.Data]; ok {
				for i := range n.Attr {
					if n.Attr[i].Key == attr && isExternalAsset(n.Attr[i].Val) {
						local := p.localPath(n.Attr[i].Val)
						p.required[n.Attr[i].Val] = local
						n.Attr[i].Val = "/" + local
						changed = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	if changed {
		var b strings.Builder
		if err := html.Render(&b, doc); err != nil {
			return fmt.Errorf("render rewritten %s: %w", page.SourcePath, err)
		}
		page.HTML = []byte(b.String())
	}
	return nil
}

func (p *privacyPlugin) WriteArtifacts(siteDir string, _ []*render.Page) error {
	if len(p.required) == 0 {
		return nil
	}
	dir := filepath.Join(siteDir, filepath.FromSlash(p.assetsBase))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create assets directory: %w", err)
	}
	data, err := json.MarshalIndent(p.required, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal asset manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("write asset manifest: %w", err)
	}
	return nil
}

func isExternalAsset(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// localPath derives a stable mirror path from the URL: a short content
// hash of the URL plus its original extension.
func (p *privacyPlugin) localPath(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	ext := path.Ext(ref)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	return path.Join(p.assetsBase, hex.EncodeToString(sum[:8])+ext)
}
