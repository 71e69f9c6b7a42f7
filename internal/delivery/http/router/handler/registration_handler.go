package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/delivery/http/response"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	// idImagesField is the multipart field carrying provider ID images.
	idImagesField = "idImages"
	maxIDImages   = 4
	maxIDImageMB  = 5
)

var allowedIDImageTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// RegistrationHandler serves the OTP-gated join flow.
type RegistrationHandler struct {
	uc usecase.RegistrationUsecase
}

// NewRegistrationHandler is the constructor for RegistrationHandler, injected by Fx.
func NewRegistrationHandler(uc usecase.RegistrationUsecase) *RegistrationHandler {
	return &RegistrationHandler{uc: uc}
}

type profileRequest struct {
	FullName      *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Password      *string `json:"password" validate:"omitempty,max=72"`
	TermsAccepted *bool   `json:"termsAccepted"`
	Occupation    *string `json:"occupation" validate:"omitempty,max=100"`
	ReferenceID   *string `json:"referenceId" validate:"omitempty,max=100"`
}

func (r profileRequest) toInput() usecase.ProfileInput {
	return usecase.ProfileInput{
		FullName:      r.FullName,
		Password:      r.Password,
		TermsAccepted: r.TermsAccepted,
		Occupation:    r.Occupation,
		ReferenceID:   r.ReferenceID,
	}
}

type requestOtpRequest struct {
	contactRequest
	profileRequest
}

type verifyOtpRequest struct {
	contactRequest
	profileRequest
	Otp string `json:"otp" validate:"required"`
}

type completeRegistrationRequest struct {
	contactRequest
	profileRequest
	VerificationToken string `json:"verificationToken" validate:"required"`
}

// RequestUserOtp handles POST /auth/register/request-otp.
func (h *RegistrationHandler) RequestUserOtp(c echo.Context) error {
	var req requestOtpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.present(); err != nil {
		return err
	}

	output, err := h.uc.RequestOtp(c.Request().Context(), &usecase.RequestOtpInput{
		Role:    entity.RoleUser,
		Email:   req.Email,
		Phone:   req.Phone,
		Profile: req.toInput(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, output, "Verification code sent")
}

// RegisterProvider handles POST /providers/register. The body is multipart so
// ID images can travel with the profile; plain JSON is accepted without images.
func (h *RegistrationHandler) RegisterProvider(c echo.Context) error {
	req, files, err := h.bindProviderForm(c)
	if err != nil {
		return err
	}
	defer closeAll(files)

	output, err := h.uc.RequestOtp(c.Request().Context(), &usecase.RequestOtpInput{
		Role:     entity.RoleProvider,
		Email:    req.Email,
		Phone:    req.Phone,
		Profile:  req.toInput(),
		IDImages: uploadedFiles(files),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, output, "Verification code sent")
}

// VerifyUserOtp handles POST /auth/register/verify-otp.
func (h *RegistrationHandler) VerifyUserOtp(c echo.Context) error {
	return h.verify(c, entity.RoleUser)
}

// VerifyProviderOtp handles POST /providers/register/verify-otp.
func (h *RegistrationHandler) VerifyProviderOtp(c echo.Context) error {
	return h.verify(c, entity.RoleProvider)
}

func (h *RegistrationHandler) verify(c echo.Context, role entity.Role) error {
	var req verifyOtpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.present(); err != nil {
		return err
	}

	output, err := h.uc.VerifyOtp(c.Request().Context(), &usecase.VerifyOtpInput{
		Role:    role,
		Email:   req.Email,
		Phone:   req.Phone,
		Otp:     strings.TrimSpace(req.Otp),
		Profile: req.toInput(),
		Device:  deviceInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if output.Completed {
		return sessionResponse(c, http.StatusCreated, output.Session, "Registration completed")
	}

	return response.OK(c, output, "Verification code accepted, complete your registration")
}

// CompleteRegistration handles POST /auth/register/complete.
func (h *RegistrationHandler) CompleteRegistration(c echo.Context) error {
	var req completeRegistrationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.uc.CompleteRegistration(c.Request().Context(), &usecase.CompleteRegistrationInput{
		VerificationToken: strings.TrimSpace(req.VerificationToken),
		Email:             req.Email,
		Phone:             req.Phone,
		Profile:           req.toInput(),
		Device:            deviceInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return sessionResponse(c, http.StatusCreated, session, "Registration completed")
}

type openedFile struct {
	header *multipart.FileHeader
	file   multipart.File
}

func (h *RegistrationHandler) bindProviderForm(c echo.Context) (*requestOtpRequest, []openedFile, error) {
	req := &requestOtpRequest{}
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := bind(c, req); err != nil {
			return nil, nil, err
		}

		return req, nil, req.present()
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Invalid multipart body").WithDetails(err.Error()))
	}

	req.Email = formValue(form, "email")
	req.Phone = formValue(form, "phone")
	req.FullName = optionalFormValue(form, "fullName")
	req.Password = optionalFormValue(form, "password")
	req.Occupation = optionalFormValue(form, "occupation")
	req.ReferenceID = optionalFormValue(form, "referenceId")
	if raw := optionalFormValue(form, "termsAccepted"); raw != nil {
		accepted, err := strconv.ParseBool(*raw)
		if err != nil {
			return nil, nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("termsAccepted must be a boolean"))
		}
		req.TermsAccepted = &accepted
	}

	if err := c.Validate(req); err != nil {
		return nil, nil, errors.WithStack(err)
	}
	if err := req.present(); err != nil {
		return nil, nil, err
	}

	files, err := openIDImages(form.File[idImagesField])
	if err != nil {
		return nil, nil, err
	}

	return req, files, nil
}

func openIDImages(headers []*multipart.FileHeader) ([]openedFile, error) {
	if len(headers) > maxIDImages {
		return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("At most " + strconv.Itoa(maxIDImages) + " ID images are accepted"))
	}

	files := make([]openedFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > maxIDImageMB<<20 {
			closeAll(files)

			return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage(header.Filename + " exceeds " + strconv.Itoa(maxIDImageMB) + "MB"))
		}
		if !allowedIDImageTypes[header.Header.Get(echo.HeaderContentType)] {
			closeAll(files)

			return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage(header.Filename + " must be a JPEG, PNG, WebP or PDF file"))
		}

		file, err := header.Open()
		if err != nil {
			closeAll(files)

			return nil, errors.Wrap(err, "failed to open uploaded file")
		}
		files = append(files, openedFile{header: header, file: file})
	}

	return files, nil
}

func uploadedFiles(files []openedFile) []service.UploadedFile {
	if len(files) == 0 {
		return nil
	}

	uploads := make([]service.UploadedFile, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, service.UploadedFile{
			Name:        f.header.Filename,
			ContentType: f.header.Header.Get(echo.HeaderContentType),
			Content:     f.file,
		})
	}

	return uploads
}

func closeAll(files []openedFile) {
	for _, f := range files {
		_ = f.file.Close()
	}
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}

	return ""
}

func optionalFormValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]

	return &value
}
