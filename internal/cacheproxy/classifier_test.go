package cacheproxy

import (
	"testing"
)

func defaultClassifier() *Classifier {
	return NewClassifier(
		[]string{"https://fonts.googleapis.com", "https://fonts.gstatic.com"},
		"/api",
	)
}

func TestClassifyImage(t *testing.T) {
	c := defaultClassifier()

	route, ok := c.Classify(&Request{URL: "https://shop.example/covers/book.webp"})
	if !ok {
		t.Fatal("image request not classified")
	}
	if route.Policy != PolicyCacheFirst || route.Partition != PartitionImages {
		t.Errorf("route = %+v, want cache-first/images", route)
	}
}

func TestClassifyImageDestinationHint(t *testing.T) {
	c := defaultClassifier()

	// No extension, but the requester declared it an image.
	route, ok := c.Classify(&Request{URL: "https://shop.example/covers/42", Destination: DestinationImage})
	if !ok || route.Partition != PartitionImages {
		t.Errorf("route = %+v ok=%v, want images partition", route, ok)
	}
}

func TestClassifyKindBeatsPath(t *testing.T) {
	c := defaultClassifier()

	// Both an image and under the API prefix: request kind wins.
	route, ok := c.Classify(&Request{URL: "https://shop.example/api/covers/book.png"})
	if !ok {
		t.Fatal("request not classified")
	}
	if route.Policy != PolicyCacheFirst || route.Partition != PartitionImages {
		t.Errorf("route = %+v, want cache-first/images (kind over path)", route)
	}
}

func TestClassifyFontOrigin(t *testing.T) {
	c := defaultClassifier()

	route, ok := c.Classify(&Request{URL: "https://fonts.gstatic.com/s/roboto/v30/font.woff2"})
	if !ok {
		t.Fatal("font request not classified")
	}
	if route.Policy != PolicyStaleWhileRevalidate || route.Partition != PartitionFonts {
		t.Errorf("route = %+v, want stale-while-revalidate/fonts", route)
	}
}

func TestClassifyFontOriginBeatsStyleKind(t *testing.T) {
	c := defaultClassifier()

	// Google Fonts serves its loader as a stylesheet. The origin decides
	// the partition so the entry gets the fonts expiry, not static's.
	route, ok := c.Classify(&Request{
		URL:         "https://fonts.googleapis.com/css2?family=Roboto",
		Destination: DestinationStyle,
	})
	if !ok {
		t.Fatal("font stylesheet not classified")
	}
	if route.Policy != PolicyStaleWhileRevalidate || route.Partition != PartitionFonts {
		t.Errorf("route = %+v, want stale-while-revalidate/fonts (origin over kind)", route)
	}
}

func TestClassifyAPIPath(t *testing.T) {
	c := defaultClassifier()

	route, ok := c.Classify(&Request{URL: "https://shop.example/api/products?page=2"})
	if !ok {
		t.Fatal("api request not classified")
	}
	if route.Policy != PolicyNetworkFirst || route.Partition != PartitionAPI {
		t.Errorf("route = %+v, want network-first/api", route)
	}
}

func TestClassifyScriptAndStyle(t *testing.T) {
	c := defaultClassifier()

	for _, url := range []string{
		"https://shop.example/assets/app.js",
		"https://shop.example/assets/theme.css",
	} {
		route, ok := c.Classify(&Request{URL: url})
		if !ok {
			t.Fatalf("%s not classified", url)
		}
		if route.Policy != PolicyStaleWhileRevalidate || route.Partition != PartitionStatic {
			t.Errorf("%s route = %+v, want stale-while-revalidate/static", url, route)
		}
	}
}

func TestClassifyPassThrough(t *testing.T) {
	c := defaultClassifier()

	if _, ok := c.Classify(&Request{URL: "https://shop.example/checkout"}); ok {
		t.Error("plain navigation classified, want pass-through")
	}
}
