package listings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	listsvc "wheelhub-backend/internal/application/listings"

	"github.com/gofiber/fiber/v2"
)

var errEmptyBody = errors.New("empty body")

// parseForm reads a listing submission from JSON or multipart/form-data.
// In multipart bodies the "images" text values (existing URLs) come first, then the "images" files.
func parseForm(c *fiber.Ctx) (listsvc.Form, error) {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		mf, err := c.MultipartForm()
		if err != nil {
			return listsvc.Form{}, err
		}
		return formFromMultipart(mf)
	}
	if len(c.Body()) == 0 {
		return listsvc.Form{}, errEmptyBody
	}
	var body map[string]interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return listsvc.Form{}, err
	}
	return formFromJSON(body), nil
}

func formFromJSON(body map[string]interface{}) listsvc.Form {
	f := listsvc.Form{
		Type:            asString(body[listsvc.FieldType]),
		Name:            asString(body[listsvc.FieldName]),
		Manufacturer:    asString(body[listsvc.FieldManufacturer]),
		Model:           asString(body[listsvc.FieldModel]),
		Year:            asString(body[listsvc.FieldYear]),
		Mileage:         asString(body[listsvc.FieldMileage]),
		FuelType:        asString(body[listsvc.FieldFuelType]),
		Transmission:    asString(body[listsvc.FieldTransmission]),
		Description:     asString(body[listsvc.FieldDescription]),
		Offer:           asBool(body["offer"]),
		RegularPrice:    asString(body[listsvc.FieldRegularPrice]),
		DiscountedPrice: asString(body[listsvc.FieldDiscountedPrice]),
	}
	if raw, ok := body[listsvc.FieldImages].([]interface{}); ok {
		for _, v := range raw {
			f.Images = append(f.Images, listsvc.ImageRef{URL: asString(v)})
		}
	}
	return f
}

func formFromMultipart(mf *multipart.Form) (listsvc.Form, error) {
	value := func(key string) string {
		if vs := mf.Value[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	f := listsvc.Form{
		Type:            value(listsvc.FieldType),
		Name:            value(listsvc.FieldName),
		Manufacturer:    value(listsvc.FieldManufacturer),
		Model:           value(listsvc.FieldModel),
		Year:            value(listsvc.FieldYear),
		Mileage:         value(listsvc.FieldMileage),
		FuelType:        value(listsvc.FieldFuelType),
		Transmission:    value(listsvc.FieldTransmission),
		Description:     value(listsvc.FieldDescription),
		Offer:           asBool(value("offer")),
		RegularPrice:    value(listsvc.FieldRegularPrice),
		DiscountedPrice: value(listsvc.FieldDiscountedPrice),
	}
	for _, u := range mf.Value[listsvc.FieldImages] {
		f.Images = append(f.Images, listsvc.ImageRef{URL: u})
	}
	for _, fh := range mf.File[listsvc.FieldImages] {
		img, err := readPart(fh)
		if err != nil {
			return listsvc.Form{}, err
		}
		f.Images = append(f.Images, listsvc.ImageRef{File: img})
	}
	return f, nil
}

func readPart(fh *multipart.FileHeader) (*listsvc.PendingImage, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return &listsvc.PendingImage{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func asBool(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	}
	return false
}
