package public

import (
	"errors"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var provisionErrorRules = []mappedHandlerError{
	{target: service.ErrDeviceNameInvalid, code: response.CodeBadRequest, key: "error.device_name_invalid"},
	{target: service.ErrTenantMissing, code: response.CodeBadRequest, key: "error.tenant_missing"},
	{target: service.ErrNoLicenseCapacity, code: response.CodeBadRequest, key: "error.license_no_capacity"},
	{target: service.ErrDeviceExists, code: response.CodeConflict, key: "error.device_exists"},
	{target: service.ErrRemoteCreateFailed, code: response.CodeUpstream, key: "error.remote_create_failed"},
	{target: service.ErrRemoteAssignFailed, code: response.CodeUpstream, key: "error.remote_assign_failed"},
	{target: service.ErrPlatformUnavailable, code: response.CodeUpstream, key: "error.platform_unavailable"},
	{target: service.ErrProvisionFailed, code: response.CodeUpstream, key: "error.provision_failed"},
}

var deviceQueryErrorRules = []mappedHandlerError{
	{target: service.ErrDeviceNotFound, code: response.CodeNotFound, key: "error.device_not_found"},
	{target: service.ErrPlatformUnavailable, code: response.CodeUpstream, key: "error.platform_unavailable"},
}

var credentialUpdateErrorRules = concatMappedHandlerErrors(deviceQueryErrorRules, []mappedHandlerError{
	{target: service.ErrCredentialsInvalid, code: response.CodeBadRequest, key: "error.credentials_invalid"},
})

var licensePurchaseErrorRules = []mappedHandlerError{
	{target: service.ErrTenantMissing, code: response.CodeBadRequest, key: "error.tenant_missing"},
	{target: service.ErrLicenseUnitsInvalid, code: response.CodeBadRequest, key: "error.license_units_invalid"},
	{target: service.ErrLicensePriceInvalid, code: response.CodeBadRequest, key: "error.license_price_invalid"},
}
