package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/pagecue/internal/adapters/persistence"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodeDecode(t *testing.T) {
	Convey("Given marker positions", t, func() {
		positions := []float64{12.5, 0, 3.333333333333333, 60, 12.5}

		Convey("When encoding", func() {
			var buf bytes.Buffer
			So(persistence.Encode(&buf, positions), ShouldBeNil)

			Convey("Then each position is one newline-terminated line", func() {
				So(buf.String(), ShouldEqual, "12.5\n0\n3.333333333333333\n60\n12.5\n")
			})

			Convey("And decoding within the range", func() {
				res, err := persistence.Decode(&buf, 0, 60)

				Convey("Then the same positions come back in order", func() {
					So(err, ShouldBeNil)
					So(res.Positions, ShouldResemble, positions)
					So(res.Dropped, ShouldBeEmpty)
				})
			})
		})

		Convey("When decoding out-of-range lines", func() {
			res, err := persistence.Decode(strings.NewReader("5\n-1\n99\n7\n"), 0, 10)

			Convey("Then they are dropped and reported", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldResemble, []float64{5, 7})
				So(len(res.Dropped), ShouldEqual, 2)
				So(res.Dropped[0].Line, ShouldEqual, 2)
				So(res.Dropped[1].Position, ShouldEqual, 99)
				So(errors.Is(res.Dropped[0].Err, persistence.ErrMarkerRange), ShouldBeTrue)
			})
		})

		Convey("When decoding malformed lines", func() {
			res, err := persistence.Decode(strings.NewReader("abc\n4.5s\n\n  8\r\n"), 0, 10)

			Convey("Then they parse best effort", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldResemble, []float64{0, 4.5, 0, 8})
			})
		})

		Convey("When decoding NaN", func() {
			res, _ := persistence.Decode(strings.NewReader("NaN\n"), 0, 10)

			Convey("Then it is dropped", func() {
				So(res.Positions, ShouldBeEmpty)
				So(len(res.Dropped), ShouldEqual, 1)
			})
		})
	})
}

func TestParseLenient(t *testing.T) {
	Convey("Given assorted text", t, func() {
		So(persistence.ParseLenient("42"), ShouldEqual, 42)
		So(persistence.ParseLenient(" 1.5e2 "), ShouldEqual, 150)
		So(persistence.ParseLenient("3.25abc"), ShouldEqual, 3.25)
		So(persistence.ParseLenient("1e"), ShouldEqual, 1)
		So(persistence.ParseLenient("-2.5-"), ShouldEqual, -2.5)
		So(persistence.ParseLenient("x1"), ShouldEqual, 0)
		So(persistence.ParseLenient(""), ShouldEqual, 0)
	})
}

func TestSaveLoad(t *testing.T) {
	Convey("Given a temporary directory", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "talk.markers")

		Convey("When saving and loading", func() {
			So(persistence.Save(path, []float64{1, 2.25, 30}), ShouldBeNil)
			res, err := persistence.Load(path, 0, 30)

			Convey("Then the round trip is exact", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldResemble, []float64{1, 2.25, 30})
			})

			Convey("Then no temporary files are left", func() {
				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Name(), ShouldEqual, "talk.markers")
			})
		})

		Convey("When overwriting an existing file", func() {
			So(persistence.Save(path, []float64{1, 2, 3}), ShouldBeNil)
			So(persistence.Save(path, []float64{9}), ShouldBeNil)
			data, err := os.ReadFile(path)

			Convey("Then only the new content remains", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "9\n")
			})
		})

		Convey("When saving an empty list", func() {
			So(persistence.Save(path, nil), ShouldBeNil)
			res, err := persistence.Load(path, 0, 10)

			Convey("Then the file is empty", func() {
				So(err, ShouldBeNil)
				So(res.Positions, ShouldBeEmpty)
			})
		})

		Convey("When the directory does not exist", func() {
			err := persistence.Save(filepath.Join(dir, "missing", "x.markers"), []float64{1})

			Convey("Then ErrPersistenceIO is returned", func() {
				So(errors.Is(err, persistence.ErrPersistenceIO), ShouldBeTrue)
			})
		})

		Convey("When loading a missing file", func() {
			_, err := persistence.Load(filepath.Join(dir, "nope.markers"), 0, 10)

			Convey("Then ErrPersistenceIO wraps the not-exist error", func() {
				So(errors.Is(err, persistence.ErrPersistenceIO), ShouldBeTrue)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})
	})
}

func TestDefaultPath(t *testing.T) {
	Convey("Given document paths", t, func() {
		So(persistence.DefaultPath("/talks/intro.pdf"), ShouldEqual, "/talks/intro.markers")
		So(persistence.DefaultPath("slides"), ShouldEqual, "slides.markers")
	})
}

func TestWatcher(t *testing.T) {
	Convey("Given a watched marker file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "live.markers")
		So(persistence.Save(path, []float64{1}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		changed := make(chan string, 4)
		w, err := persistence.Watch(ctx, path, func(_ context.Context, p string) {
			calls.Add(1)
			changed <- p
		}, persistence.WithDebounce(150*time.Millisecond), persistence.WithWatcherLogger(nil))
		So(err, ShouldBeNil)
		defer w.Close()

		Convey("When the file is rewritten several times quickly", func() {
			So(persistence.Save(path, []float64{2}), ShouldBeNil)
			So(persistence.Save(path, []float64{3}), ShouldBeNil)

			Convey("Then the handler runs once after it settles", func() {
				var got string
				select {
				case got = <-changed:
				case <-time.After(3 * time.Second):
				}
				So(got, ShouldEqual, w.Path())
				time.Sleep(400 * time.Millisecond)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When another file in the directory changes", func() {
			So(os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600), ShouldBeNil)

			Convey("Then the handler does not run", func() {
				time.Sleep(400 * time.Millisecond)
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When closed twice", func() {
			So(w.Close(), ShouldBeNil)
			So(w.Close(), ShouldBeNil)
		})
	})
}
