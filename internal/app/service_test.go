package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/okian/pagecue/internal/adapters/clock"
	"github.com/okian/pagecue/internal/adapters/persistence"
	service "github.com/okian/pagecue/internal/app"
	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/markers"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/raster"
	"github.com/okian/pagecue/internal/domain/trigger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDoc is a document of solid pages that counts renders per page.
type fakeDoc struct {
	mu      sync.Mutex
	pages   int
	renders map[int]int
	failOn  map[int]bool
	closed  bool
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{pages: pages, renders: map[int]int{}, failOn: map[int]bool{}}
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) PageSize(i int) (document.PageSize, error) {
	if i < 0 || i >= d.pages {
		return document.PageSize{}, document.ErrPageRange
	}
	return document.PageSize{Width: 842, Height: 595}, nil
}

func (d *fakeDoc) RenderPage(_ context.Context, i int, scale float64) (document.RawBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renders[i]++
	if d.failOn[i] {
		return document.RawBuffer{}, errors.New("broken page")
	}
	w := int(842*scale + 0.5)
	h := int(595*scale + 0.5)
	pix := make([]byte, w*h*4)
	for j := 0; j < len(pix); j += 4 {
		pix[j+2] = byte(i * 10) // red encodes the page
		pix[j+3] = 255
	}
	return document.RawBuffer{Width: w, Height: h, Stride: w * 4, Pix: pix}, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDoc) renderCount(i int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders[i]
}

type fakeOpener struct {
	docs map[string]*fakeDoc
}

func (o *fakeOpener) Open(_ context.Context, path string) (document.Document, error) {
	d, ok := o.docs[path]
	if !ok {
		return nil, document.ErrLoad
	}
	return d, nil
}

func newService(opts ...service.Option) (*service.Service, *fakeDoc, *clock.Manual) {
	doc := newFakeDoc(5)
	manual := clock.NewManual(0)
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"talk.pdf":  doc,
		"other.pdf": newFakeDoc(2),
		"empty.pdf": newFakeDoc(0),
	}}
	base := []service.Option{
		service.WithOpener(opener),
		service.WithClock(manual),
		service.WithViewport(model.Size{Width: 300, Height: 300}),
		service.WithPreviewSize(model.Size{Width: 100, Height: 100}),
	}
	svc, err := service.New(append(base, opts...)...)
	So(err, ShouldBeNil)
	return svc, doc, manual
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc, err := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(err, ShouldBeNil)
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["policy"], ShouldEqual, "emit_each")
			So(stats["cacheCapacity"], ShouldEqual, 0)
			So(svc.CurrentPage(), ShouldEqual, -1)
			So(svc.PageCount(), ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc, _, _ := newService(
			service.WithCacheCapacity(8),
			service.WithPolicy(trigger.PolicyEmitOnce),
			service.WithBaseDPI(72),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["cacheCapacity"], ShouldEqual, 8)
			So(stats["policy"], ShouldEqual, "emit_once")
		})
	})
}

func TestService_LoadDocument(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc, doc, _ := newService()

		Convey("When a document is loaded", func() {
			So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)

			Convey("Then the first page and the preview are rendered", func() {
				snap := svc.Snapshot()
				So(snap.Document, ShouldNotBeNil)
				So(snap.Document.Filename, ShouldEqual, "talk.pdf")
				So(snap.Document.PageCount, ShouldEqual, 5)
				So(snap.Document.CurrentPage, ShouldEqual, 0)
				So(snap.Document.ID, ShouldNotBeEmpty)
				So(svc.Page().Rect.Dx(), ShouldEqual, 300)
				So(svc.Page().Rect.Dy(), ShouldEqual, 212)
				So(svc.Preview().Rect.Dx(), ShouldEqual, 100)
				So(svc.Preview().NRGBAAt(0, 0).R, ShouldEqual, 10)
				So(snap.CacheEntries, ShouldEqual, 2)
				So(doc.renderCount(0), ShouldEqual, 1)
			})

			Convey("Then no markers exist without a track", func() {
				So(svc.Markers(), ShouldBeEmpty)
			})

			Convey("And a missing document is loaded", func() {
				err := svc.LoadDocument(ctx, "missing.pdf")

				Convey("Then the previous document stays active", func() {
					So(errors.Is(err, document.ErrLoad), ShouldBeTrue)
					snap := svc.Snapshot()
					So(snap.Document.Filename, ShouldEqual, "talk.pdf")
					So(snap.Status, ShouldContainSubstring, "document load failed")
					So(doc.closed, ShouldBeFalse)
				})
			})

			Convey("And another document is loaded", func() {
				So(svc.LoadDocument(ctx, "other.pdf"), ShouldBeNil)

				Convey("Then the cache is rebuilt for it and the old one closed", func() {
					snap := svc.Snapshot()
					So(snap.Document.Filename, ShouldEqual, "other.pdf")
					So(snap.CacheEntries, ShouldEqual, 2)
					So(doc.closed, ShouldBeTrue)
				})
			})
		})

		Convey("When a document without pages is loaded", func() {
			err := svc.LoadDocument(ctx, "empty.pdf")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, document.ErrLoad), ShouldBeTrue)
				So(svc.Snapshot().Document, ShouldBeNil)
			})
		})
	})
}

func TestService_Navigation(t *testing.T) {
	ctx := context.Background()

	Convey("Given no document", t, func() {
		svc, _, _ := newService()

		Convey("When navigating", func() {
			err := svc.AdvancePage(ctx)

			Convey("Then ErrNoDocument is returned", func() {
				So(errors.Is(err, service.ErrNoDocument), ShouldBeTrue)
				So(svc.Snapshot().Status, ShouldEqual, service.ErrNoDocument.Error())
			})
		})
	})

	Convey("Given a loaded document", t, func() {
		svc, doc, _ := newService()
		var seen []string
		svc.Subscribe(func(_ context.Context, cmd model.Command) {
			seen = append(seen, cmd.CommandName())
		})

		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)

		Convey("When advancing and retreating", func() {
			So(svc.AdvancePage(ctx), ShouldBeNil)
			So(svc.AdvancePage(ctx), ShouldBeNil)
			So(svc.RetreatPage(ctx), ShouldBeNil)

			Convey("Then the page follows and listeners see each command", func() {
				So(svc.CurrentPage(), ShouldEqual, 1)
				So(svc.Page().NRGBAAt(0, 0).R, ShouldEqual, 10)
				So(seen, ShouldResemble, []string{"advance", "advance", "retreat"})
			})
		})

		Convey("When retreating on the first page", func() {
			So(svc.RetreatPage(ctx), ShouldBeNil)

			Convey("Then nothing changes", func() {
				So(svc.CurrentPage(), ShouldEqual, 0)
			})
		})

		Convey("When advancing past the last page", func() {
			So(svc.GoToPage(ctx, 4), ShouldBeNil)
			So(svc.AdvancePage(ctx), ShouldBeNil)

			Convey("Then it stays on the last page without a preview", func() {
				So(svc.CurrentPage(), ShouldEqual, 4)
				So(svc.Preview(), ShouldBeNil)
				So(svc.Snapshot().Document.HasNext, ShouldBeFalse)
			})
		})

		Convey("When jumping out of range", func() {
			err := svc.GoToPage(ctx, 9)

			Convey("Then ErrPageRange is returned", func() {
				So(errors.Is(err, document.ErrPageRange), ShouldBeTrue)
				So(svc.CurrentPage(), ShouldEqual, 0)
			})
		})

		Convey("When returning to a rendered page", func() {
			So(svc.AdvancePage(ctx), ShouldBeNil)
			So(svc.RetreatPage(ctx), ShouldBeNil)
			So(svc.AdvancePage(ctx), ShouldBeNil)

			Convey("Then the cache serves it without rendering again", func() {
				So(doc.renderCount(0), ShouldEqual, 1)
				So(doc.renderCount(1), ShouldEqual, 2) // preview size and page size
			})
		})

		Convey("When a page fails to render", func() {
			before := svc.Page()
			doc.failOn[1] = true
			err := svc.AdvancePage(ctx)

			Convey("Then the previous bitmap is kept and nothing is cached", func() {
				So(errors.Is(err, raster.ErrRender), ShouldBeTrue)
				So(svc.Page(), ShouldPointTo, before)
				So(svc.Snapshot().Status, ShouldContainSubstring, "broken page")
			})
		})

		Convey("When an unknown command is handled", func() {
			err := svc.Handle(ctx, nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrUnknownCmd), ShouldBeTrue)
			})
		})
	})
}

func TestService_Triggering(t *testing.T) {
	ctx := context.Background()

	Convey("Given a document and a 100 second track", t, func() {
		svc, _, manual := newService()
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)
		So(svc.LoadTrack(ctx, "talk.wav", 100), ShouldBeNil)

		Convey("Then markers are distributed one per page break", func() {
			ms := svc.Markers()
			So(len(ms), ShouldEqual, 4)
			So(ms[0].Position, ShouldEqual, 20)
			So(ms[3].Position, ShouldEqual, 80)
		})

		Convey("When ticking while paused", func() {
			So(svc.Seek(ctx, 50), ShouldBeNil)
			So(svc.Tick(ctx), ShouldBeNil)

			Convey("Then nothing fires", func() {
				So(svc.CurrentPage(), ShouldEqual, 0)
			})
		})

		Convey("When playback crosses a marker", func() {
			So(svc.Play(ctx), ShouldBeNil)
			manual.Advance(21)
			So(svc.Tick(ctx), ShouldBeNil)
			So(svc.Tick(ctx), ShouldBeNil)
			manual.Advance(5)
			So(svc.Tick(ctx), ShouldBeNil)

			Convey("Then the page advances exactly once", func() {
				So(svc.CurrentPage(), ShouldEqual, 1)
				ms := svc.Markers()
				So(ms[0].Triggered, ShouldBeTrue)
				So(ms[1].Triggered, ShouldBeFalse)
			})

			Convey("And the fired marker is dragged behind the position", func() {
				_, err := svc.MoveMarker(ctx, model.MarkerID(svc.Markers()[0].ID), 10)
				So(err, ShouldBeNil)
				So(svc.Markers()[0].Triggered, ShouldBeFalse)
				So(svc.Tick(ctx), ShouldBeNil)

				Convey("Then it fires again", func() {
					So(svc.CurrentPage(), ShouldEqual, 2)
				})
			})
		})

		Convey("When a seek skips several markers", func() {
			So(svc.Play(ctx), ShouldBeNil)
			So(svc.Seek(ctx, 65), ShouldBeNil)
			So(svc.Tick(ctx), ShouldBeNil)

			Convey("Then each crossed marker advances a page", func() {
				So(svc.CurrentPage(), ShouldEqual, 3)
			})
		})

		Convey("When markers are cleared after firing", func() {
			So(svc.Play(ctx), ShouldBeNil)
			manual.Advance(30)
			So(svc.Tick(ctx), ShouldBeNil)
			svc.ClearMarkers(ctx)

			Convey("Then none remain", func() {
				So(svc.Markers(), ShouldBeEmpty)
				So(svc.GetStats()["firedMarkers"], ShouldEqual, 0)
			})
		})

		Convey("When the last marker is dragged past the end and playback runs out", func() {
			last := model.MarkerID(svc.Markers()[3].ID)
			m, err := svc.MoveMarker(ctx, last, 500)
			So(err, ShouldBeNil)
			So(m.Position, ShouldEqual, 100)

			So(svc.Play(ctx), ShouldBeNil)
			manual.Advance(90)
			So(svc.Tick(ctx), ShouldBeNil)
			manual.Advance(20)
			So(svc.Tick(ctx), ShouldBeNil)

			Convey("Then the markers inside the track fire and the one at the end stays armed", func() {
				So(svc.CurrentPage(), ShouldEqual, 3)
				So(svc.Markers()[3].Triggered, ShouldBeFalse)

				track := svc.Snapshot().Track
				So(track, ShouldNotBeNil)
				So(track.Position, ShouldEqual, 100)
				So(track.Length, ShouldEqual, 100)
				So(track.Playing, ShouldBeFalse)
			})
		})
	})

	Convey("Given the emit-once policy", t, func() {
		svc, _, _ := newService(service.WithPolicy(trigger.PolicyEmitOnce))
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)
		So(svc.LoadTrack(ctx, "talk.wav", 100), ShouldBeNil)

		Convey("When a seek skips several markers", func() {
			So(svc.Play(ctx), ShouldBeNil)
			So(svc.Seek(ctx, 65), ShouldBeNil)
			So(svc.Tick(ctx), ShouldBeNil)

			Convey("Then only one page advance happens and all crossed markers are fired", func() {
				So(svc.CurrentPage(), ShouldEqual, 1)
				ms := svc.Markers()
				So(ms[0].Triggered, ShouldBeTrue)
				So(ms[2].Triggered, ShouldBeTrue)
				So(ms[3].Triggered, ShouldBeFalse)
			})
		})
	})
}

func TestService_Markers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc, _, manual := newService()

		Convey("When adding a marker without a track", func() {
			_, err := svc.AddMarker(ctx, 3)

			Convey("Then ErrNoTrack is returned", func() {
				So(errors.Is(err, service.ErrNoTrack), ShouldBeTrue)
			})
		})

		Convey("When loading a track with an invalid length", func() {
			err := svc.LoadTrack(ctx, "bad.wav", 0)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidTrack), ShouldBeTrue)
				So(errors.Is(svc.Play(ctx), service.ErrNoTrack), ShouldBeTrue)
			})
		})

		Convey("When a track is loaded", func() {
			So(svc.LoadTrack(ctx, "t.wav", 60), ShouldBeNil)

			Convey("Then markers can be added inside the track", func() {
				m, err := svc.AddMarker(ctx, 12)
				So(err, ShouldBeNil)
				So(m.Position, ShouldEqual, 12)
				So(m.ID, ShouldBeGreaterThan, 0)
			})

			Convey("Then markers outside the track are rejected", func() {
				_, err := svc.AddMarker(ctx, 61)
				So(errors.Is(err, service.ErrMarkerRange), ShouldBeTrue)
			})

			Convey("Then a marker can be added at the playback position", func() {
				manual.Seek(7.5)
				m, err := svc.AddMarkerAtPosition(ctx)
				So(err, ShouldBeNil)
				So(m.Position, ShouldEqual, 7.5)
			})

			Convey("Then drags are clamped to the track", func() {
				m, _ := svc.AddMarker(ctx, 5)
				moved, err := svc.MoveMarker(ctx, model.MarkerID(m.ID), 500)
				So(err, ShouldBeNil)
				So(moved.Position, ShouldEqual, 60)
				So(moved.Dragging, ShouldBeFalse)
			})

			Convey("Then dragging an unknown marker fails", func() {
				_, err := svc.DragMarker(ctx, 999, 1)
				So(errors.Is(err, markers.ErrUnknownMarker), ShouldBeTrue)
			})

			Convey("Then distributing needs a document", func() {
				So(errors.Is(svc.DistributeMarkers(ctx), service.ErrNoDocument), ShouldBeTrue)
			})

			Convey("Then saving needs a path", func() {
				_, err := svc.SaveMarkers(ctx, "")
				So(errors.Is(err, service.ErrNoMarkersPath), ShouldBeTrue)
			})
		})

		Convey("When loading markers before a track", func() {
			_, err := svc.LoadMarkers(ctx, filepath.Join(t.TempDir(), "x.markers"))

			Convey("Then ErrNoTrack is returned", func() {
				So(errors.Is(err, service.ErrNoTrack), ShouldBeTrue)
			})
		})
	})
}

func TestService_Persistence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a document and a track", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "talk.markers")
		svc, _, _ := newService(service.WithMarkersPath(path))
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)
		So(svc.LoadTrack(ctx, "talk.wav", 100), ShouldBeNil)

		Convey("When markers are saved and reloaded", func() {
			written, err := svc.SaveMarkers(ctx, "")
			So(err, ShouldBeNil)
			So(written, ShouldEqual, path)
			svc.ClearMarkers(ctx)
			res, err := svc.LoadMarkers(ctx, "")

			Convey("Then the positions round trip", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldResemble, []float64{20, 40, 60, 80})
				So(len(svc.Markers()), ShouldEqual, 4)
			})
		})

		Convey("When a file has out-of-range lines", func() {
			So(persistence.Save(path, []float64{10, 250, 90}), ShouldBeNil)
			res, err := svc.LoadMarkers(ctx, path)

			Convey("Then they are dropped and reported", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldResemble, []float64{10, 90})
				So(len(res.Dropped), ShouldEqual, 1)
				So(svc.Snapshot().Status, ShouldContainSubstring, "dropped 1")
			})
		})

		Convey("When the file is missing", func() {
			_, err := svc.LoadMarkers(ctx, filepath.Join(dir, "nope.markers"))

			Convey("Then the markers are kept", func() {
				So(errors.Is(err, persistence.ErrPersistenceIO), ShouldBeTrue)
				So(len(svc.Markers()), ShouldEqual, 4)
			})
		})
	})
}

func TestService_Resize(t *testing.T) {
	ctx := context.Background()

	Convey("Given an unbounded cache", t, func() {
		svc, doc, _ := newService()
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)

		Convey("When the viewport is resized", func() {
			So(svc.Resize(ctx, model.Size{Width: 600, Height: 600}), ShouldBeNil)

			Convey("Then the page is re-rendered at the new size", func() {
				So(svc.Page().Rect.Dx(), ShouldEqual, 600)
				So(doc.renderCount(0), ShouldEqual, 2)
				So(svc.Snapshot().Viewport, ShouldResemble, [2]int{600, 600})
			})
		})

		Convey("When the viewport is empty", func() {
			err := svc.Resize(ctx, model.Size{})

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a bounded cache", t, func() {
		svc, doc, _ := newService(service.WithCacheCapacity(16))
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)

		Convey("When resizing away and back", func() {
			So(svc.Resize(ctx, model.Size{Width: 600, Height: 600}), ShouldBeNil)
			So(svc.Resize(ctx, model.Size{Width: 300, Height: 300}), ShouldBeNil)

			Convey("Then the old size is served from the cache", func() {
				So(doc.renderCount(0), ShouldEqual, 2)
				So(svc.Page().Rect.Dx(), ShouldEqual, 300)
			})
		})

		Convey("When the preview is resized", func() {
			So(svc.ResizePreview(ctx, model.Size{Width: 50, Height: 50}), ShouldBeNil)

			Convey("Then the preview follows", func() {
				So(svc.Preview().Rect.Dx(), ShouldEqual, 50)
			})
		})
	})
}

func TestService_Feed(t *testing.T) {
	ctx := context.Background()

	Convey("Given a loaded document with an open feed", t, func() {
		svc, _, _ := newService(service.WithFeedCapacity(2))
		So(svc.LoadDocument(ctx, "talk.pdf"), ShouldBeNil)

		feedCtx, cancelCtx := context.WithCancel(ctx)
		defer cancelCtx()
		events, cancel := svc.Feed(feedCtx)
		So(svc.GetStats()["feeds"], ShouldEqual, 1)

		Convey("When the page moves and then cannot move", func() {
			So(svc.GoToPage(ctx, 4), ShouldBeNil)
			So(svc.AdvancePage(ctx), ShouldBeNil)

			Convey("Then both commands are reported in order", func() {
				first := <-events
				So(first.Command, ShouldEqual, "goto")
				So(first.Page, ShouldEqual, 4)
				So(first.PageCount, ShouldEqual, 5)
				So(first.Moved, ShouldBeTrue)

				second := <-events
				So(second.Command, ShouldEqual, "advance")
				So(second.Moved, ShouldBeFalse)
			})
		})

		Convey("When more events arrive than the feed buffers", func() {
			for i := 0; i < 4; i++ {
				So(svc.GoToPage(ctx, i), ShouldBeNil)
			}
			cancel()

			Convey("Then the extra events are dropped without blocking", func() {
				var pages []int
				for e := range events {
					pages = append(pages, e.Page)
				}
				So(len(pages), ShouldBeLessThanOrEqualTo, 3)
				So(pages[0], ShouldEqual, 0)
				So(svc.GetStats()["feeds"], ShouldEqual, 0)
			})
		})

		Convey("When the service stops", func() {
			svc.Stop()

			Convey("Then the feed ends", func() {
				for range events {
				}
				So(svc.GetStats()["feeds"], ShouldEqual, 0)
			})
		})

		Convey("When the reader's context ends without cancelling the feed", func() {
			cancelCtx()
			for range events {
			}
			So(svc.GoToPage(ctx, 1), ShouldBeNil)

			Convey("Then the next page event drops the feed", func() {
				So(svc.GetStats()["feeds"], ShouldEqual, 0)
			})
		})

		Reset(cancel)
	})
}

func TestService_Restart(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that is started and stopped repeatedly", t, func() {
		svc, _, _ := newService()
		base := runtime.NumGoroutine()

		for i := 0; i < 50; i++ {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Snapshot().Running, ShouldBeTrue)
			svc.Stop()
		}

		Convey("Then each stop ends the loops its start began", func() {
			So(svc.Snapshot().Running, ShouldBeFalse)
			So(waitFor(func() bool { return runtime.NumGoroutine() <= base }), ShouldBeTrue)
		})

		Convey("When start and stop race each other", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_ = svc.Start(ctx)
				}()
				go func() {
					defer wg.Done()
					svc.Stop()
				}()
			}
			wg.Wait()
			svc.Stop()

			Convey("Then no loop outlives the final stop", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
				So(waitFor(func() bool { return runtime.NumGoroutine() <= base }), ShouldBeTrue)
			})
		})
	})
}
