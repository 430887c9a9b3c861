// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package moodle

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/pkg/directory"
)

const (
	loginPath  = "/login/index.php"
	usersPath  = "/admin/user.php"
	createPath = "/user/editadvanced.php?id=-1"
	editPath   = "/user/editadvanced.php?id="

	errorSelectors = "div.alert-danger, .error, [role=alert], span.error, div.invalid-feedback"
)

// emptyNotices are the texts the user list shows when a filter matches no
// account.
var emptyNotices = []string{
	"No se encuentran usuarios",
	"No users found",
	"Nothing to display",
	"Nada que mostrar",
}

const snapshotJS = `(notices) => {
	const text = document.body ? document.body.innerText : "";
	const rows = [];
	for (const tr of document.querySelectorAll("table tbody tr")) {
		const cells = Array.from(tr.querySelectorAll("td")).map(td => td.innerText.trim());
		if (cells.length === 0 || cells.every(c => c === "")) continue;
		const edit = tr.querySelector("a[href*='user/editadvanced.php'], a[href*='user/edit.php']");
		rows.push({cells: cells, edit: edit ? edit.href : ""});
	}
	return {rows: rows, empty: notices.some(n => text.includes(n))};
}`

const errorsJS = `(selectors) => {
	const seen = [];
	for (const el of document.querySelectorAll(selectors)) {
		if (el.offsetParent === null && el.getClientRects().length === 0) continue;
		const t = (el.innerText || "").trim();
		if (t !== "" && !seen.includes(t)) seen.push(t);
	}
	return seen;
}`

const unmaskPasswordJS = `() => {
	const a = document.querySelector("a[data-passwordunmask='edit']");
	if (a) a.click();
	return a !== null;
}`

var _ directory.ClientInterface = (*Browser)(nil)

type BrowserConfig struct {
	BaseURL       string
	AdminUser     string
	AdminPassword string

	// Bin is the browser executable, found or downloaded when empty.
	Bin      string
	Headless bool
	// Timeout bounds every wait for a page or element.
	Timeout time.Duration
}

// Browser drives the Moodle administration pages of one logged-in session.
// It is not safe for concurrent use: the session shares one page and its
// search filters.
type Browser struct {
	cfg BrowserConfig

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	logger logging.LoggerInterface
}

type resultRow struct {
	Cells []string `json:"cells"`
	Edit  string   `json:"edit"`
}

// searchResult is what the user list shows after filtering by email.
type searchResult struct {
	Rows  []resultRow `json:"rows"`
	Empty bool        `json:"empty"`
}

func (b *Browser) FindByEmail(ctx context.Context, email string, opts directory.LookupOptions) (directory.Lookup, error) {
	res, err := b.search(b.page.Context(ctx), email, !opts.FirstInRun)
	if err != nil {
		return directory.Lookup{}, err
	}
	return classifyRows(email, res), nil
}

func (b *Browser) CreateUser(ctx context.Context, f directory.Fields) (directory.UserRef, error) {
	p := b.page.Context(ctx)

	if err := b.navigate(p, b.cfg.BaseURL+createPath); err != nil {
		return directory.UserRef{}, err
	}

	for _, field := range []struct{ selector, value string }{
		{"#id_username", strings.ToLower(f.Username)},
		{"#id_email", f.Email},
		{"#id_firstname", f.FirstName},
		{"#id_lastname", f.LastName},
	} {
		if err := b.fill(p, field.selector, field.value); err != nil {
			return directory.UserRef{}, err
		}
	}

	if res, err := p.Eval(unmaskPasswordJS); err != nil || !res.Value.Bool() {
		b.logger.Debugf("password unmask link not clicked: %v", err)
	}
	if err := b.fill(p, "#id_newpassword", f.Password); err != nil {
		return directory.UserRef{}, err
	}

	if err := b.submit(p, "[name=submitbutton]"); err != nil {
		return directory.UserRef{}, err
	}

	if msgs := b.formErrors(p); len(msgs) > 0 {
		return directory.UserRef{}, directory.NewRejectedError("CreateUser", msgs...)
	}
	return directory.UserRef{}, nil
}

func (b *Browser) EditUser(ctx context.Context, ref directory.UserRef, f directory.Fields) error {
	p := b.page.Context(ctx)

	target := ref.EditURL
	if target == "" {
		if ref.ID == "" {
			return directory.NewRejectedError("EditUser", "no edit link for the account")
		}
		target = b.cfg.BaseURL + editPath + url.QueryEscape(ref.ID)
	}

	if err := b.navigate(p, target); err != nil {
		return err
	}
	if err := b.fill(p, "#id_firstname", f.FirstName); err != nil {
		return err
	}
	if err := b.fill(p, "#id_lastname", f.LastName); err != nil {
		return err
	}
	if err := b.submit(p, "#id_submitbutton"); err != nil {
		return err
	}

	if msgs := b.formErrors(p); len(msgs) > 0 {
		return directory.NewRejectedError("EditUser", msgs...)
	}
	return nil
}

// ConfirmPresence searches the user list again, independently of any earlier
// lookup, and reports whether a row shows exactly email.
func (b *Browser) ConfirmPresence(ctx context.Context, email string) (bool, error) {
	res, err := b.search(b.page.Context(ctx), email, true)
	if err != nil {
		return false, err
	}
	return len(matchingRows(email, res.Rows)) > 0, nil
}

func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}

func (b *Browser) login(ctx context.Context) error {
	p := b.page.Context(ctx)

	if err := b.navigate(p, b.cfg.BaseURL+loginPath); err != nil {
		return err
	}
	if err := b.fill(p, "#username", b.cfg.AdminUser); err != nil {
		return err
	}
	if err := b.fill(p, "#password", b.cfg.AdminPassword); err != nil {
		return err
	}
	if err := b.submit(p, "#loginbtn"); err != nil {
		return err
	}

	if has, _, _ := p.Has("#loginbtn"); has {
		msgs := b.formErrors(p)
		return fmt.Errorf("login as %s failed: %s", b.cfg.AdminUser, strings.Join(msgs, "; "))
	}

	b.logger.Infof("logged in to %s as %s", b.cfg.BaseURL, b.cfg.AdminUser)
	return nil
}

// search filters the user list by email. Filters left by a previous search
// are removed first when clear is set.
func (b *Browser) search(p *rod.Page, email string, clear bool) (searchResult, error) {
	if err := b.navigate(p, b.cfg.BaseURL+usersPath); err != nil {
		return searchResult{}, err
	}

	if clear {
		if has, _, _ := p.Has("#id_removeall"); has {
			if err := b.submit(p, "#id_removeall"); err != nil {
				return searchResult{}, err
			}
		}
	}

	if has, el, _ := p.Has("a.moreless-toggler"); has {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			b.logger.Debugf("show more toggle failed: %v", err)
		}
	}

	if err := b.fill(p, "#id_email", email); err != nil {
		return searchResult{}, err
	}

	el, err := b.element(p, "#id_email")
	if err != nil {
		return searchResult{}, err
	}
	if err := b.await(p, func() error { return el.Type(input.Enter) }); err != nil {
		return searchResult{}, err
	}

	res, err := p.Eval(snapshotJS, emptyNotices)
	if err != nil {
		return searchResult{}, fmt.Errorf("failed to read user list: %w", err)
	}

	var out searchResult
	if err := res.Value.Unmarshal(&out); err != nil {
		return searchResult{}, fmt.Errorf("failed to decode user list: %w", err)
	}
	return out, nil
}

func (b *Browser) navigate(p *rod.Page, target string) error {
	tp := p.Timeout(b.cfg.Timeout)
	defer tp.CancelTimeout()

	if err := tp.Navigate(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	if err := tp.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", target, err)
	}
	return nil
}

func (b *Browser) element(p *rod.Page, selector string) (*rod.Element, error) {
	el, err := p.Timeout(b.cfg.Timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", selector, err)
	}
	return el.CancelTimeout(), nil
}

// fill replaces the content of the input matching selector.
func (b *Browser) fill(p *rod.Page, selector, value string) error {
	el, err := b.element(p, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

// submit clicks selector and waits for the page it leads to.
func (b *Browser) submit(p *rod.Page, selector string) error {
	el, err := b.element(p, selector)
	if err != nil {
		return err
	}
	return b.await(p, func() error { return el.Click(proto.InputMouseButtonLeft, 1) })
}

// await runs action and waits for the navigation it triggers to load.
func (b *Browser) await(p *rod.Page, action func() error) error {
	tp := p.Timeout(b.cfg.Timeout)
	defer tp.CancelTimeout()

	wait := tp.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := action(); err != nil {
		return err
	}
	wait()
	return nil
}

// formErrors returns the visible error texts of the current page.
func (b *Browser) formErrors(p *rod.Page) []string {
	res, err := p.Eval(errorsJS, errorSelectors)
	if err != nil {
		b.logger.Debugf("failed to read form errors: %v", err)
		return nil
	}

	var msgs []string
	if err := res.Value.Unmarshal(&msgs); err != nil {
		return nil
	}
	return msgs
}

// classifyRows reads a filtered user list. Exactly one row showing the email
// is a match, no row with the empty notice is an absence, anything else
// cannot be trusted.
func classifyRows(email string, res searchResult) directory.Lookup {
	matches := matchingRows(email, res.Rows)

	switch {
	case len(matches) == 1:
		return directory.Lookup{
			Status: directory.Found,
			Ref:    directory.UserRef{ID: userID(matches[0].Edit), EditURL: matches[0].Edit},
		}
	case len(matches) > 1:
		return directory.Lookup{Status: directory.Indeterminate, Detail: fmt.Sprintf("%d rows show %s", len(matches), email)}
	case len(res.Rows) == 0 && res.Empty:
		return directory.Lookup{Status: directory.NotFound}
	case len(res.Rows) == 0:
		return directory.Lookup{Status: directory.Indeterminate, Detail: "no result rows and no empty notice"}
	default:
		return directory.Lookup{Status: directory.Indeterminate, Detail: fmt.Sprintf("%d rows listed but none shows %s", len(res.Rows), email)}
	}
}

func matchingRows(email string, rows []resultRow) []resultRow {
	var out []resultRow
	for _, r := range rows {
		for _, c := range r.Cells {
			if strings.EqualFold(strings.TrimSpace(c), email) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// userID extracts the id parameter of an edit link.
func userID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

// NewBrowser launches a browser, opens a page and logs in as the
// administrator.
func NewBrowser(ctx context.Context, cfg BrowserConfig, logger logging.LoggerInterface) (*Browser, error) {
	b := new(Browser)

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	b.cfg = cfg
	b.logger = logger

	b.launcher = launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		b.launcher = b.launcher.Bin(cfg.Bin)
	}

	controlURL, err := b.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b.browser = rod.New().ControlURL(controlURL)
	if err := b.browser.Connect(); err != nil {
		b.launcher.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.page, err = b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := b.login(ctx); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}
