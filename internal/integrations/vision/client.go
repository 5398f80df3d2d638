// Package vision annotates inbound images with Cloud Vision.
package vision

import (
	"context"
	"errors"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type annotatorAPI interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Annotation keeps the descriptions only; bounding geometry is dropped.
type Annotation struct {
	Labels  []string `json:"labels"`
	Text    string   `json:"text"`
	Logos   []string `json:"logos"`
	Objects []string `json:"objects"`
}

type Client struct {
	api annotatorAPI
}

func Dial(ctx context.Context, opts ...option.ClientOption) (*vision.ImageAnnotatorClient, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision: create annotator client: %w", err)
	}
	return c, nil
}

func New(api annotatorAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("vision: api must not be nil")
	}
	return &Client{api: api}, nil
}

var features = []*visionpb.Feature{
	{Type: visionpb.Feature_OBJECT_LOCALIZATION},
	{Type: visionpb.Feature_LABEL_DETECTION},
	{Type: visionpb.Feature_TEXT_DETECTION},
	{Type: visionpb.Feature_LOGO_DETECTION},
}

func (c *Client) Annotate(ctx context.Context, image []byte) (Annotation, error) {
	if len(image) == 0 {
		return Annotation{}, errors.New("vision: image must not be empty")
	}
	resp, err := c.api.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: features,
		}},
	})
	if err != nil {
		return Annotation{}, fmt.Errorf("vision: batch annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return Annotation{}, errors.New("vision: empty annotate response")
	}
	r := resp.GetResponses()[0]
	if e := r.GetError(); e != nil && e.GetCode() != 0 {
		return Annotation{}, fmt.Errorf("vision: annotate image: %s", e.GetMessage())
	}

	out := Annotation{
		Labels:  []string{},
		Logos:   []string{},
		Objects: []string{},
	}
	for _, l := range r.GetLabelAnnotations() {
		out.Labels = append(out.Labels, l.GetDescription())
	}
	// The first text annotation holds the full detected text.
	if texts := r.GetTextAnnotations(); len(texts) > 0 {
		out.Text = texts[0].GetDescription()
	}
	for _, l := range r.GetLogoAnnotations() {
		out.Logos = append(out.Logos, l.GetDescription())
	}
	for _, o := range r.GetLocalizedObjectAnnotations() {
		out.Objects = append(out.Objects, o.GetName())
	}
	return out, nil
}
