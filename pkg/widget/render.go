package widget

import (
	"encoding/json"

	"github.com/codz-dev/uploader/pkg/collection"
	"github.com/codz-dev/uploader/pkg/i18n"
	"github.com/codz-dev/uploader/pkg/toast"
	"github.com/codz-dev/uploader/pkg/upload"
	"github.com/codz-dev/uploader/pkg/vdom"
)

// Client-side actions. Elements carrying them are handled in the browser,
// where the user gesture that opens a picker or window is still live.
const (
	actionAttr   = "uploader-action"
	actionBrowse = "browse"
	actionOpen   = "open"
)

// Render builds the widget markup. Preview tokens issued by the previous
// render are released and new ones acquired.
func (c *Controller) Render() *vdom.VNode {
	c.releaseTokens()

	empty := c.files.IsEmpty()
	errMsg, errShown := c.notices.Message(toast.TypeError)
	okMsg, okShown := c.notices.Message(toast.TypeSuccess)
	rtl := c.tr.Lang() == i18n.Arabic

	var rootControl vdom.Control
	if empty {
		rootControl = vdom.ControlBrowse{}
	}

	return vdom.Div(
		vdom.ID(c.cfg.ID),
		vdom.Class("file-uploader"),
		vdom.ClassIf(c.dragging, "drag-over"),
		vdom.ClassIf(errShown || c.requiredError, "uploader-error-state"),
		vdom.ClassIf(okShown, "uploader-success-state"),
		vdom.ClassIf(rtl, "uploader-rtl"),
		vdom.AttrIf(rtl, vdom.Dir("rtl")),
		vdom.Data("uploader-widget", c.cfg.ID),
		vdom.AttrIf(empty, vdom.Data(actionAttr, actionBrowse)),
		rootControl,

		vdom.Div(
			vdom.Class("drop-overlay"),
			vdom.ClassIf(c.dragging && !empty, "active"),
			c.tr.T(i18n.KeyDropFilesHere),
		),
		c.renderEmptyState(empty),
		c.renderInput(),
		c.renderPreview(empty),
		vdom.Div(vdom.Class("uploader-error"), vdom.ClassIf(errShown, "show"),
			vdom.Role("alert"), errMsg),
		vdom.Div(vdom.Class("uploader-success"), vdom.ClassIf(okShown, "show"),
			vdom.AriaLive("polite"), okMsg),
	)
}

func (c *Controller) renderEmptyState(empty bool) *vdom.VNode {
	fileText := c.tr.T(i18n.KeyFiles)
	selectText := c.tr.T(i18n.KeySelectFiles)
	if c.cfg.Single {
		fileText = c.tr.T(i18n.KeyFile)
		selectText = c.tr.T(i18n.KeySelectFile)
	}

	display := "display: none;"
	if empty {
		display = "display: block;"
	}

	return vdom.Div(
		vdom.Class("uploader-content"),
		vdom.StyleAttr(display),
		vdom.Div(vdom.Class("uploader-icon"), vdom.Raw(iconUpload)),
		vdom.Div(vdom.Class("uploader-text"), c.tr.T(i18n.KeyDragDrop, fileText)),
		vdom.Div(
			vdom.Class("uploader-hint"),
			c.tr.T(i18n.KeyAcceptedTypes)+" "+c.accept.Format(c.tr.T(i18n.KeyFiles)),
			vdom.El("br"),
			c.tr.T(i18n.KeyMaxSize)+" "+c.maxSizeMB()+" MB",
		),
		vdom.Button(
			vdom.Type("button"),
			vdom.Class("uploader-browse"),
			vdom.Data(actionAttr, actionBrowse),
			vdom.ControlBrowse{},
			vdom.Raw(iconBrowse),
			" "+selectText,
		),
	)
}

// renderInput is the native picker. It carries the field name only while
// new files are selected, mirroring what a plain form would submit.
func (c *Controller) renderInput() *vdom.VNode {
	return vdom.Input(
		vdom.Type("file"),
		vdom.Class("uploader-input"),
		vdom.StyleAttr("display: none;"),
		vdom.Accept(c.accept.Spec()),
		vdom.AttrIf(!c.cfg.Single, vdom.Multiple()),
		vdom.AttrIf(c.cfg.Name != "" && c.files.PendingCount() > 0, vdom.Name(c.cfg.FileFieldName())),
		vdom.Data("uploader-input", c.cfg.ID),
	)
}

func (c *Controller) renderPreview(empty bool) *vdom.VNode {
	display := "display: flex;"
	if empty {
		display = "display: none;"
	}

	var body *vdom.VNode
	if c.cfg.Single {
		body = vdom.Div(vdom.Class("single-preview"), c.renderSingle())
	} else {
		body = vdom.Div(vdom.Class("preview-container"), c.renderCarousel())
	}

	return vdom.Div(
		vdom.Class("uploader-preview"),
		vdom.StyleAttr(display),
		vdom.Button(
			vdom.Type("button"),
			vdom.Class("uploader-edit-button"),
			vdom.TitleAttr(c.tr.T(i18n.KeyNewUploaderTitle)),
			vdom.ControlReset{},
			vdom.Raw(iconUpload),
			" "+c.tr.T(i18n.KeyNewUploader),
		),
		body,
	)
}

func (c *Controller) renderSingle() *vdom.VNode {
	f, ok := c.files.At(0)
	if !ok {
		return nil
	}
	return c.renderItem(f, "single-preview-item", false)
}

func (c *Controller) renderCarousel() *vdom.VNode {
	width := c.clientWidth()
	files := c.files.All()

	items := make([]*vdom.VNode, 0, len(files)+1)
	items = append(items, vdom.Div(
		vdom.Class("add-file-button"),
		vdom.ClassIf(c.strip.Partial(0, width), "partial-visible"),
		vdom.Data(actionAttr, actionBrowse),
		vdom.ControlBrowse{},
		vdom.Raw(iconAdd),
	))
	for i, f := range files {
		items = append(items, c.renderItem(f, "uploader-carousel-item", c.strip.Partial(i+1, width)))
	}

	return vdom.Div(
		vdom.Class("carousel-container"),
		vdom.StyleAttr("position: relative;"),
		vdom.Div(
			vdom.Class("carousel-wrapper"),
			vdom.Div(vdom.Class("preview-carousel"), vdom.StyleAttr(c.strip.Style()), items),
		),
		vdom.Button(
			vdom.Type("button"),
			vdom.Class("carousel-nav", "carousel-prev"),
			vdom.AriaLabel(c.tr.T(i18n.KeyPreviousFiles)),
			vdom.ControlNav{Dir: -1},
			vdom.Raw(iconPrevious),
		),
		vdom.Button(
			vdom.Type("button"),
			vdom.Class("carousel-nav", "carousel-next"),
			vdom.AriaLabel(c.tr.T(i18n.KeyNextFiles)),
			vdom.ControlNav{Dir: 1},
			vdom.Raw(iconNext),
		),
	)
}

func (c *Controller) renderItem(f collection.File, class string, partial bool) *vdom.VNode {
	clickable := f.IsRemote() && f.URL != ""

	var control vdom.Control
	if clickable {
		control = vdom.ControlPreview{URL: f.URL}
	}

	return vdom.Div(
		vdom.Class(class),
		vdom.ClassIf(partial, "partial-visible"),
		vdom.ClassIf(clickable, "clickable-preview"),
		vdom.AttrIf(clickable, vdom.Data(actionAttr, actionOpen)),
		vdom.AttrIf(clickable, vdom.Data("href", f.URL)),
		vdom.Data("key", f.Key),
		control,
		c.renderThumb(f),
		vdom.When(clickable, func() *vdom.VNode {
			return vdom.Div(vdom.Class("preview-label"), vdom.Raw(iconEye), " "+c.tr.T(i18n.KeyPreviewFile))
		}),
		vdom.When(f.Removable(), func() *vdom.VNode { return c.renderRemove(f) }),
	)
}

func (c *Controller) renderThumb(f collection.File) *vdom.VNode {
	if f.IsImage() {
		if src := c.thumbURL(f); src != "" {
			return vdom.Img(vdom.Src(src), vdom.Alt(f.Name))
		}
	}
	label := f.Label()
	return vdom.Div(vdom.Class("file-extension", "file-"+label.Class()), string(label))
}

// thumbURL returns the image source for f, acquiring a preview token for
// pending files.
func (c *Controller) thumbURL(f collection.File) string {
	if f.IsRemote() {
		return f.URL
	}
	if c.opts.Previews == nil || f.Blob == nil {
		return ""
	}
	token := c.opts.Previews.Acquire(f.Blob.ID(), f.Type)
	c.tokens = append(c.tokens, token)
	return upload.URL(c.opts.PreviewPath, token)
}

func (c *Controller) renderRemove(f collection.File) *vdom.VNode {
	if c.busy[f.Key] {
		return vdom.Button(
			vdom.Type("button"),
			vdom.Class("carousel-item-remove", "spinner-active"),
			vdom.Disabled(),
			vdom.AriaBusy(true),
			vdom.Raw(iconSpinner),
		)
	}
	return vdom.Button(
		vdom.Type("button"),
		vdom.Class("carousel-item-remove"),
		vdom.TitleAttr(c.tr.T(i18n.KeyRemoveFile)),
		vdom.AriaLabel(c.tr.T(i18n.KeyRemoveFile)),
		vdom.ControlRemove{Key: f.Key},
		vdom.Raw(iconDelete),
	)
}

// HiddenValue is the value submitted for retained remote files: the id
// in single mode, a JSON array of ids otherwise. ok is false when no
// remote file is retained.
func (c *Controller) HiddenValue() (value string, ok bool) {
	ids := c.files.RemoteIdentifiers()
	if len(ids) == 0 {
		return "", false
	}
	if c.cfg.Single {
		return ids[0], true
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", false
	}
	return string(b), true
}
