package workflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/directory"
)

// PlaceholderImage is the generic avatar shown when a user has no profile
// photo.
const PlaceholderImage = "data:image/svg+xml;base64,PD94bWwgdmVyc2lvbj0iMS4wIiBlbmNvZGluZz0iVVRGLTgiPz4NCjwhRE9DVFlQRSBzdmcgIFBVQkxJQyAnLS8vVzNDLy9EVEQgU1ZHIDEuMS8vRU4nICAnaHR0cDovL3d3dy53My5vcmcvR3JhcGhpY3MvU1ZHLzEuMS9EVEQvc3ZnMTEuZHRkJz4NCjxzdmcgd2lkdGg9IjQwMXB4IiBoZWlnaHQ9IjQwMXB4IiBlbmFibGUtYmFja2dyb3VuZD0ibmV3IDMxMi44MDkgMCA0MDEgNDAxIiB2ZXJzaW9uPSIxLjEiIHZpZXdCb3g9IjMxMi44MDkgMCA0MDEgNDAxIiB4bWw6c3BhY2U9InByZXNlcnZlIiB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciPg0KPGcgdHJhbnNmb3JtPSJtYXRyaXgoMS4yMjMgMCAwIDEuMjIzIC00NjcuNSAtODQzLjQ0KSI+DQoJPHJlY3QgeD0iNjAxLjQ1IiB5PSI2NTMuMDciIHdpZHRoPSI0MDEiIGhlaWdodD0iNDAxIiBmaWxsPSIjRTRFNkU3Ii8+DQoJPHBhdGggZD0ibTgwMi4zOCA5MDguMDhjLTg0LjUxNSAwLTE1My41MiA0OC4xODUtMTU3LjM4IDEwOC42MmgzMTQuNzljLTMuODctNjAuNDQtNzIuOS0xMDguNjItMTU3LjQxLTEwOC42MnoiIGZpbGw9IiNBRUI0QjciLz4NCgk8cGF0aCBkPSJtODgxLjM3IDgxOC44NmMwIDQ2Ljc0Ni0zNS4xMDYgODQuNjQxLTc4LjQxIDg0LjY0MXMtNzguNDEtMzcuODk1LTc4LjQxLTg0LjY0MSAzNS4xMDYtODQuNjQxIDc4LjQxLTg0LjY0MWM0My4zMSAwIDc4LjQxIDM3LjkgNzguNDEgODQuNjR6IiBmaWxsPSIjQUVCNEI3Ii8+DQo8L2c+DQo8L3N2Zz4NCg=="

// thumbnailWidth is the display width of the profile photo on the page.
const thumbnailWidth = 128

// ProfileView is everything the profile page renders for one user.
type ProfileView struct {
	Email       string
	ProfileJSON string
	PhotoURI    string
	Upcoming    []directory.EventSummary
}

// Profile assembles the profile view for an email address. Not-found and
// invalid-user conditions render messages in place of data; a token-expiry
// condition propagates so the handler can trigger re-authentication; all
// other failures degrade to placeholder content.
func (c *Coordinator) Profile(ctx context.Context, email string) (*ProfileView, error) {
	view := &ProfileView{Email: email}

	if email == "" {
		view.ProfileJSON = messageJSON("Email address cannot be null.")
		view.PhotoURI = PlaceholderImage
		return view, nil
	}

	profileJSON, err := c.profileJSON(ctx, email)
	if err != nil {
		return nil, err
	}
	view.ProfileJSON = profileJSON

	photoURI, err := c.photoURI(ctx, email)
	if err != nil {
		return nil, err
	}
	view.PhotoURI = photoURI

	upcoming, err := c.dir.ListUpcoming(ctx, 10)
	if err != nil {
		if errors.Is(err, directory.ErrTokenExpired) {
			return nil, err
		}
		common.Logger.WithError(err).Warn("upcoming events listing failed")
	}
	view.Upcoming = upcoming

	return view, nil
}

func (c *Coordinator) profileJSON(ctx context.Context, email string) (string, error) {
	profile, err := c.dir.GetProfile(ctx, email)
	switch {
	case err == nil:
		data, marshalErr := json.MarshalIndent(profile, "", "  ")
		if marshalErr != nil {
			return "", marshalErr
		}
		return string(data), nil
	case errors.Is(err, directory.ErrNotFound):
		return messageJSON(fmt.Sprintf("User '%s' was not found.", email)), nil
	case errors.Is(err, directory.ErrInvalidUser):
		return messageJSON(fmt.Sprintf("The requested user '%s' is invalid.", email)), nil
	case errors.Is(err, directory.ErrAuthFailure):
		return messageJSON("Authentication with the directory failed."), nil
	case errors.Is(err, directory.ErrTokenExpired):
		return "", err
	default:
		common.Logger.WithError(err).Error("profile lookup failed")
		return messageJSON("An unknown error has occurred."), nil
	}
}

func (c *Coordinator) photoURI(ctx context.Context, email string) (string, error) {
	photo, err := c.dir.GetPhoto(ctx, email)
	switch {
	case err == nil:
		return thumbnailDataURI(photo), nil
	case errors.Is(err, directory.ErrTokenExpired):
		return "", err
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrInvalidUser):
		return PlaceholderImage, nil
	default:
		common.Logger.WithError(err).Warn("photo retrieval failed")
		return PlaceholderImage, nil
	}
}

func messageJSON(message string) string {
	data, err := json.MarshalIndent(struct {
		Message string `json:"message"`
	}{Message: message}, "", "  ")
	if err != nil {
		return `{"message": "An unknown error has occurred."}`
	}
	return string(data)
}

// thumbnailDataURI downscales a photo for page display and returns it as a
// JPEG data URI. Photos that cannot be decoded are embedded as-is.
func thumbnailDataURI(photo []byte) string {
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(photo)
	}

	if img.Bounds().Dx() > thumbnailWidth {
		img = resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(photo)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
