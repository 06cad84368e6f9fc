package bridge

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bridgeconnector/internal/imaging"

	"github.com/goccy/go-json"
)

const (
	saveFileOK        = "OK"
	errBadExtension   = "ERROR_INVALID_FILE_EXTENSION"
	errBadSource      = "ERROR_INVALID_SOURCE"
	errCantSave       = "CANT_SAVE_FILE"
	fetchTimeout      = 60 * time.Second
	fetchMaxRedirects = 5
	fetchUserAgent    = "A2C Bridge/" + Version
)

var extensionRe = regexp.MustCompile(`\.([\w]+)$`)

// allowedExtensions lists every file type the bridge will write to disk.
var allowedExtensions = map[string]bool{}

func init() {
	for _, ext := range strings.Fields(`
		3ds 3g2 3gp 7z aac ai aif apk asf avi bin bmp csv cue dat dds dmg doc
		docx dwg dxf eot eps flac flv gif gz heic ico ics iso jar jpeg jpg js
		json key log m4a m4v max md mid mkv mov mp3 mp4 mpa mpeg mpg odp ods
		odt ogg otf pdf php png pps ppt pptx ps psd rar raw rtf sql srt svg
		swf tar tif tiff ts ttf txt vob wav webm webp wma wmv woff woff2 xls
		xlsx xml yaml yml zip
	`) {
		allowedExtensions[ext] = true
	}
}

func fetchClient() *http.Client {
	return &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= fetchMaxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// fetchURL downloads the file body from a remote source.
func fetchURL(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := fetchClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type saveFileRequest struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Content string `json:"content"`
	Target  string `json:"target"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// saveFile writes one file under the upload directory, optionally resizing
// images to fit the requested box.
func saveFile(ctx *Context, req saveFileRequest) string {
	m := extensionRe.FindStringSubmatch(req.Target)
	if m == nil || !allowedExtensions[strings.ToLower(m[1])] {
		return errBadExtension
	}

	target := filepath.Clean(req.Target)
	if strings.Contains(target, "..") || filepath.IsAbs(target) {
		return errBadSource
	}

	var data []byte
	var err error
	switch {
	case req.Content != "":
		data, err = base64.StdEncoding.DecodeString(req.Content)
	case req.Source != "":
		data, err = fetchURL(req.Source)
	default:
		return errBadSource
	}
	if err != nil {
		ctx.Log.Warn("savefile source failed: %v", err)
		return errBadSource
	}

	dest := filepath.Join(uploadRoot(ctx), target)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errCantSave
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errCantSave
	}

	if req.Width > 0 && req.Height > 0 {
		if err := imaging.ResizeFile(dest, req.Width, req.Height); err != nil {
			if errors.Is(err, imaging.ErrUnsupported) {
				return err.Error()
			}
			ctx.Log.Warn("savefile resize failed: %v", err)
			return errCantSave
		}
	}
	return saveFileOK
}

// uploadRoot anchors the destination at the store base dir; a relative
// upload dir never resolves against the process working directory.
func uploadRoot(ctx *Context) string {
	dir := ctx.BaseDir
	if ctx.Cfg != nil && ctx.Cfg.ImagesDir != "" {
		dir = ctx.Cfg.ImagesDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(ctx.BaseDir, dir)
	}
	return dir
}

func actionSaveFile(ctx *Context) (string, error) {
	width, _ := strconv.Atoi(ctx.Params["width"])
	height, _ := strconv.Atoi(ctx.Params["height"])
	return saveFile(ctx, saveFileRequest{
		Source:  ctx.Params["source"],
		Content: ctx.Params["content"],
		Target:  ctx.Params["target"],
		Width:   width,
		Height:  height,
	}), nil
}

// actionBatchSaveFile saves several files in one call, reporting a status per
// file id.
func actionBatchSaveFile(ctx *Context) (string, error) {
	var requests []saveFileRequest
	if err := json.Unmarshal([]byte(ctx.Params["files"]), &requests); err != nil {
		return "", err
	}

	statuses := make(map[string]string, len(requests))
	for _, req := range requests {
		statuses[req.ID] = saveFile(ctx, req)
	}

	body, err := json.Marshal(statuses)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
